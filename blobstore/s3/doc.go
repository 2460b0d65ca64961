// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("entitynet/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	manifest, err := session.Export(ctx, store, "run-42", relations, network)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for streamed writes
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3

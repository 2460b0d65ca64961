// Package minio stores entitynet exports in MinIO or any other S3-compatible
// object store reachable through the MinIO client.
//
//	client, err := miniogo.New("localhost:9000", &miniogo.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minio.NewStore(client, "resolution", "entitynet/")
//	manifest, err := session.Export(ctx, store, "run-42", relations, network)
//
// Manifests are uploaded with a JSON content type. Blobs written through
// Create are streamed and become visible when the writer is closed.
//
// Use the s3 package instead when the AWS SDK credential chain is required.
package minio

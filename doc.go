// Package entitynet resolves which rows of one or two tables describe the
// same real-world entity.
//
// Rows are compared per feature category (name, phone, email, email domain,
// address or a registered custom category). Each comparison combines exact
// matches on normalised values with fuzzy matches found by TF-IDF
// nearest-neighbor search and threshold-gated clustering, and yields one
// relationship id per category. The network step unions all category ids
// into connected networks and, when names were compared, splits networks
// into entities.
//
// # Quick Start
//
//	a, _ := table.New([]string{"r1", "r2"},
//	    table.Column{Name: "Phone", Values: []string{"555-0100", "(555) 0100"}},
//	    table.Column{Name: "Address", Values: []string{"123 N Name Rd", "123 North Name Road"}},
//	)
//
//	s, _ := entitynet.New(a, nil)
//
//	phone, _ := s.Compare(ctx, category.Phone, entitynet.On("Phone"), 1, entitynet.DefaultKNeighbors)
//	addr, _ := s.Compare(ctx, category.Address, entitynet.On("Address"), 0.7, entitynet.DefaultKNeighbors)
//
//	net, _ := s.Network(ctx, map[category.Category]*entitynet.CategoryRelation[string]{
//	    category.Phone:   phone,
//	    category.Address: addr,
//	})
//	for _, row := range net.Rows {
//	    fmt.Println(*row.SourceA, row.NetworkID)
//	}
//
// # Two Relations
//
// With two relations only matches across them are reported. Columns must be
// named for both sides:
//
//	s, _ := entitynet.New(a, b)
//	email, _ := s.Compare(ctx, category.Email, entitynet.Columns{
//	    A: entitynet.Cols("Email"),
//	    B: entitynet.Cols("ContactEmail", "BillingEmail"),
//	}, 1, entitynet.DefaultKNeighbors)
//
// # Concurrency
//
// A Session is immutable and safe for concurrent use. Comparisons of distinct
// categories are independent; CompareAll runs them concurrently.
//
// # Persistence
//
// Export writes comparison results and networks to a blobstore.Store (memory,
// local directory, S3 or MinIO) through a codec and a compressor, next to a
// manifest. ReadManifest and ReadExport load them back:
//
//	m, _ := entitynet.ReadManifest(ctx, store, "runs/1")
//	info, _ := m.Blob(entitynet.KindNetwork, "")
//	net, _ := entitynet.ReadExport[entitynet.Network[string]](ctx, store, m, info)
package entitynet

package entitynet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"time"

	"github.com/hupe1980/entitynet/blobstore"
	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/codec"
	"github.com/hupe1980/entitynet/resource"
)

// ManifestName is the blob name of an export manifest below its prefix.
const ManifestName = "manifest.json"

const manifestVersion = 1

// ErrInvalidExport is returned when an export cannot be decoded.
var ErrInvalidExport = errors.New("invalid export")

// Blob kinds of an export.
const (
	KindCategory = "category"
	KindNetwork  = "network"
)

// BlobInfo describes one exported blob.
type BlobInfo struct {
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Category category.Category `json:"category,omitempty"`
	Rows     int               `json:"rows"`
	Size     int64             `json:"size"`
	RawSize  int64             `json:"raw_size"`
}

// Manifest lists the blobs of one export and how they are encoded.
type Manifest struct {
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	Codec         string     `json:"codec"`
	Compression   string     `json:"compression"`
	CrossRelation bool       `json:"cross_relation"`
	Nodes         int        `json:"nodes"`
	Blobs         []BlobInfo `json:"blobs"`
}

// Blob returns the info of the blob with the given kind and category.
func (m *Manifest) Blob(kind string, c category.Category) (BlobInfo, bool) {
	for _, b := range m.Blobs {
		if b.Kind == kind && b.Category == c {
			return b, true
		}
	}
	return BlobInfo{}, false
}

type exportOptions struct {
	codec       codec.Codec
	compression codec.Compression
}

// ExportOption configures Export.
type ExportOption func(*exportOptions)

// WithExportCodec selects the codec of exported blobs. Default: go-json.
func WithExportCodec(c codec.Codec) ExportOption {
	return func(o *exportOptions) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression selects the compression of exported blobs. Default: zstd.
func WithCompression(c codec.Compression) ExportOption {
	return func(o *exportOptions) {
		o.compression = c
	}
}

// Export writes every category relation and the network below prefix, then
// a manifest describing them. network may be nil. Writes go through the IO
// limit configured with WithIOLimit.
func (s *Session[K]) Export(ctx context.Context, store blobstore.Store, prefix string, relations map[category.Category]*CategoryRelation[K], network *Network[K], optFns ...ExportOption) (*Manifest, error) {
	start := time.Now()

	m, err := s.export(ctx, store, prefix, relations, network, optFns)

	var written int64
	if m != nil {
		for _, b := range m.Blobs {
			written += b.Size
		}
	}
	s.opts.metricsCollector.RecordExport(written, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Session[K]) export(ctx context.Context, store blobstore.Store, prefix string, relations map[category.Category]*CategoryRelation[K], network *Network[K], optFns []ExportOption) (*Manifest, error) {
	o := exportOptions{codec: codec.Default, compression: codec.CompressionZstd}
	for _, fn := range optFns {
		fn(&o)
	}

	cats := make([]category.Category, 0, len(relations))
	for c, rel := range relations {
		if rel == nil || rel.Category != c {
			return nil, fmt.Errorf("%w: relation stored under %q", ErrInvalidCategory, c)
		}
		cats = append(cats, c)
	}
	slices.Sort(cats)

	m := &Manifest{
		Version:       manifestVersion,
		CreatedAt:     time.Now().UTC(),
		Codec:         o.codec.Name(),
		Compression:   o.compression.String(),
		CrossRelation: s.CrossRelation(),
		Nodes:         s.nodes.Len(),
	}

	ext := ".json"
	if o.compression != codec.CompressionNone {
		ext += "." + o.compression.String()
	}

	for _, c := range cats {
		info := BlobInfo{
			Name:     path.Join(prefix, KindCategory, string(c)+ext),
			Kind:     KindCategory,
			Category: c,
			Rows:     relations[c].Len(),
		}
		if err := s.writeBlob(ctx, store, &info, o, relations[c]); err != nil {
			return nil, err
		}
		m.Blobs = append(m.Blobs, info)
	}

	if network != nil {
		info := BlobInfo{
			Name: path.Join(prefix, KindNetwork+ext),
			Kind: KindNetwork,
			Rows: network.Len(),
		}
		if err := s.writeBlob(ctx, store, &info, o, network); err != nil {
			return nil, err
		}
		m.Blobs = append(m.Blobs, info)
	}

	data, err := codec.GoJSON{}.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	name := path.Join(prefix, ManifestName)
	err = store.Put(ctx, name, data)
	s.opts.logger.LogExport(ctx, name, int64(len(data)), err)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}

	return m, nil
}

func (s *Session[K]) writeBlob(ctx context.Context, store blobstore.Store, info *BlobInfo, o exportOptions, v any) (err error) {
	defer func() {
		s.opts.logger.LogExport(ctx, info.Name, info.Size, err)
	}()

	raw, err := o.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", info.Name, err)
	}
	packed, err := o.compression.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress %s: %w", info.Name, err)
	}

	w, err := store.Create(ctx, info.Name)
	if err != nil {
		return fmt.Errorf("create %s: %w", info.Name, err)
	}

	n, err := io.Copy(resource.NewRateLimitedWriter(ctx, w, s.rc), bytes.NewReader(packed))
	if err != nil {
		_ = w.Close()
		_ = store.Delete(ctx, info.Name)
		return fmt.Errorf("write %s: %w", info.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", info.Name, err)
	}

	info.Size = n
	info.RawSize = int64(len(raw))
	return nil
}

// ReadManifest reads the manifest of the export below prefix.
func ReadManifest(ctx context.Context, store blobstore.Store, prefix string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, path.Join(prefix, ManifestName))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := (codec.GoJSON{}).Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrInvalidExport, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrInvalidExport, m.Version)
	}
	return &m, nil
}

type readOptions struct {
	limit int64
}

// ReadOption configures ReadExport.
type ReadOption func(*readOptions)

// WithReadLimit bounds the read throughput in bytes per second.
func WithReadLimit(bytesPerSec int64) ReadOption {
	return func(o *readOptions) {
		o.limit = bytesPerSec
	}
}

// ReadExport decodes one blob of an export, for example
// ReadExport[CategoryRelation[string]] for a category blob or
// ReadExport[Network[string]] for the network.
func ReadExport[T any](ctx context.Context, store blobstore.Store, m *Manifest, info BlobInfo, optFns ...ReadOption) (*T, error) {
	var o readOptions
	for _, fn := range optFns {
		fn(&o)
	}

	c, ok := codec.ByName(m.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidExport, m.Codec)
	}
	comp, err := codec.ParseCompression(m.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}

	packed, err := readBlob(ctx, store, info.Name, o.limit)
	if err != nil {
		return nil, err
	}
	raw, err := comp.Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidExport, info.Name, err)
	}

	var v T
	if err := c.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidExport, info.Name, err)
	}
	return &v, nil
}

func readBlob(ctx context.Context, store blobstore.Store, name string, limit int64) ([]byte, error) {
	if limit <= 0 {
		return blobstore.ReadAll(ctx, store, name)
	}

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	if b.Size() == 0 {
		return []byte{}, nil
	}
	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	limiter := resource.NewController(resource.Config{IOLimitBytesPerSec: limit})
	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, rc, limiter))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

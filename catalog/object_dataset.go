package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/grewanderer/datapact/frame"
)

type objectOptions struct {
	Key    string `yaml:"key"`
	Bucket string `yaml:"bucket"`
	Format string `yaml:"format"`
}

// objectDataset reads and writes a single object in a bucket. The payload is
// parsed as csv or json depending on the configured format, falling back to
// the key extension.
type objectDataset struct {
	name   string
	client *minio.Client
	bucket string
	key    string
	format string
}

func newObjectDataset(name string, params map[string]any, deps Deps) (*objectDataset, error) {
	var o objectOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}
	if deps.Objects == nil {
		return nil, errors.New("object datasets require an object store client")
	}

	key := strings.TrimSpace(o.Key)
	if key == "" {
		return nil, errors.New("key is required")
	}
	bucket := strings.TrimSpace(o.Bucket)
	if bucket == "" {
		bucket = deps.Bucket
	}
	if bucket == "" {
		return nil, errors.New("bucket is required when no default bucket is configured")
	}

	format := strings.ToLower(strings.TrimSpace(o.Format))
	if format == "" {
		format = strings.TrimPrefix(path.Ext(key), ".")
	}
	switch format {
	case "csv", "json":
	default:
		return nil, fmt.Errorf("format %q is not supported, use csv or json", format)
	}

	return &objectDataset{name: name, client: deps.Objects, bucket: bucket, key: key, format: format}, nil
}

func (d *objectDataset) Load(ctx context.Context) (any, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, d.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", d.bucket, d.key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", d.bucket, d.key, err)
	}

	var f *frame.Frame
	switch d.format {
	case "csv":
		f, err = frame.ReadCSV(bytes.NewReader(data), frame.CSVOptions{})
	case "json":
		f, err = frame.ReadJSON(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse object %s/%s: %w", d.bucket, d.key, err)
	}
	return f, nil
}

func (d *objectDataset) Save(ctx context.Context, value any) error {
	f, err := asFrame(value)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	contentType := "application/json"
	switch d.format {
	case "csv":
		contentType = "text/csv"
		err = frame.WriteCSV(&buf, f, frame.CSVOptions{})
	case "json":
		err = frame.WriteJSON(&buf, f)
	}
	if err != nil {
		return err
	}

	_, err = d.client.PutObject(ctx, d.bucket, d.key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", d.bucket, d.key, err)
	}
	return nil
}

func (d *objectDataset) Describe() string {
	return fmt.Sprintf("%s object %s/%s", d.format, d.bucket, d.key)
}

package e2e_harness

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/lychee-technology/kindgen"
)

// RecordRow is one row of the record table read back through database/sql.
type RecordRow struct {
	Kind     string
	Name     string
	State    string
	Document map[string]any
}

// ReadRecordRow loads the row for id, returning sql.ErrNoRows when it is absent.
func ReadRecordRow(ctx context.Context, db *sql.DB, table string, id uuid.UUID) (*RecordRow, error) {
	query := fmt.Sprintf("SELECT kind, name, state, document FROM %s WHERE id = $1", table)

	var (
		row      RecordRow
		document []byte
	)
	if err := db.QueryRowContext(ctx, query, id.String()).Scan(&row.Kind, &row.Name, &row.State, &document); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(document, &row.Document); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &row, nil
}

// WriteKindSchema writes the main schema with properties.kind.title set to title, which is
// the smallest schema the pipeline accepts.
func WriteKindSchema(dir, name, title string) (string, error) {
	raw := kindgen.MainSchema().Raw()
	raw["properties"].(map[string]any)[kindgen.FieldKind].(map[string]any)["title"] = title
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

// DownloadObject fetches bucket/key from the object store at endpoint.
func DownloadObject(ctx context.Context, endpoint, bucket, key string) ([]byte, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3AccessKey, s3SecretKey, "")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, fmt.Errorf("object s3://%s/%s not found", bucket, key)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

package prerender

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/edunet/internal/logger"
)

// Uploader is the subset of manager.Uploader used for deploys.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader builds an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, region string) (*manager.Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return manager.NewUploader(s3.NewFromConfig(cfg)), nil
}

// ContentType 按扩展名推断 Content-Type，未知类型回退到 octet-stream。
func ContentType(name string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

// Deploy uploads every file under outDir to bucket, keyed by its slash path below prefix.
func Deploy(ctx context.Context, uploader Uploader, bucket, prefix, outDir string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(outDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(outDir, filePath)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("open %s: %w", filePath, err)
		}
		defer file.Close()

		if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        file,
			ContentType: aws.String(ContentType(filePath)),
		}); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}

		logger.Debug().Str("bucket", bucket).Str("key", key).Msg("uploaded")
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	logger.Info().Str("bucket", bucket).Int("files", uploaded).Msg("deployment complete")
	return uploaded, nil
}

package archive

import (
    "bytes"
    "context"
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "crypto/sha256"
    "fmt"
    "os"
    "path"
    "path/filepath"

    "github.com/aws/aws-sdk-go-v2/aws"
    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/credentials"
    "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
    "github.com/aws/aws-sdk-go-v2/service/s3"
    "github.com/rs/zerolog/log"
    "golang.org/x/crypto/pbkdf2"

    "github.com/local/scansort/internal/config"
    "github.com/local/scansort/internal/report"
)

// Uploader pushes finished run artifacts into S3 under <prefix>/<run_id>/.
// With a passphrase configured every object is encrypted client side before
// it leaves the machine.
type Uploader struct {
    uploader   *manager.Uploader
    bucket     string
    prefix     string
    passphrase string
}

// New builds the S3 uploader. Static credentials and a custom endpoint
// (minio and friends) are optional; without them the default AWS chain
// applies.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Uploader, error) {
    if cfg.Bucket == "" {
        return nil, fmt.Errorf("archive bucket not configured")
    }
    var opts []func(*awscfg.LoadOptions) error
    if cfg.Region != "" {
        opts = append(opts, awscfg.WithRegion(cfg.Region))
    }
    if cfg.AccessKey != "" {
        opts = append(opts, awscfg.WithCredentialsProvider(
            credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
    }
    awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
    if err != nil {
        return nil, fmt.Errorf("load aws config: %w", err)
    }
    cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
        if cfg.Endpoint != "" {
            o.BaseEndpoint = aws.String(cfg.Endpoint)
            o.UsePathStyle = true
        }
    })
    return &Uploader{
        uploader:   manager.NewUploader(cli),
        bucket:     cfg.Bucket,
        prefix:     cfg.Prefix,
        passphrase: cfg.Passphrase,
    }, nil
}

// UploadRun archives one finished run: the JSON report plus every merged
// document PDF, keyed <prefix>/<run_id>/<name>. A missing artifact is
// logged and skipped; the first upload error aborts.
func (u *Uploader) UploadRun(ctx context.Context, runID, reportPath string, docs []report.Document) error {
    if reportPath != "" {
        if err := u.putFile(ctx, runID, filepath.Base(reportPath), reportPath, "application/json"); err != nil {
            return err
        }
    }
    for _, d := range docs {
        if d.MergedPDF == "" { continue }
        name := path.Join(filepath.Base(d.Folder), filepath.Base(d.MergedPDF))
        if err := u.putFile(ctx, runID, name, d.MergedPDF, "application/pdf"); err != nil {
            return err
        }
    }
    log.Info().Str("run_id", runID).Int("documents", len(docs)).Str("bucket", u.bucket).Msg("run archived")
    return nil
}

func (u *Uploader) putFile(ctx context.Context, runID, name, localPath, contentType string) error {
    data, err := os.ReadFile(localPath)
    if err != nil {
        log.Warn().Err(err).Str("path", localPath).Msg("artifact unreadable, skipping upload")
        return nil
    }
    meta := map[string]string{}
    if u.passphrase != "" {
        if data, err = Encrypt(data, u.passphrase); err != nil {
            return fmt.Errorf("encrypt %s: %w", name, err)
        }
        contentType = "application/octet-stream"
        meta["encryption"] = "aes-256-ctr"
    }
    key := path.Join(u.prefix, runID, name)
    _, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
        Bucket:      aws.String(u.bucket),
        Key:         aws.String(key),
        Body:        bytes.NewReader(data),
        ContentType: aws.String(contentType),
        Metadata:    meta,
    })
    if err != nil {
        return fmt.Errorf("upload %s: %w", key, err)
    }
    return nil
}

// Encrypt seals data with AES-256-CTR under a PBKDF2-derived key. The
// output is salt(16) || iv(16) || ciphertext.
func Encrypt(data []byte, passphrase string) ([]byte, error) {
    out := make([]byte, 32+len(data))
    salt, iv := out[:16], out[16:32]
    if _, err := rand.Read(salt); err != nil { return nil, err }
    if _, err := rand.Read(iv); err != nil { return nil, err }
    block, err := aes.NewCipher(deriveKey(passphrase, salt))
    if err != nil { return nil, err }
    cipher.NewCTR(block, iv).XORKeyStream(out[32:], data)
    return out, nil
}

// Decrypt reverses Encrypt.
func Decrypt(data []byte, passphrase string) ([]byte, error) {
    if len(data) < 32 {
        return nil, fmt.Errorf("encrypted payload too short: %d bytes", len(data))
    }
    salt, iv, ciphertext := data[:16], data[16:32], data[32:]
    block, err := aes.NewCipher(deriveKey(passphrase, salt))
    if err != nil { return nil, err }
    out := make([]byte, len(ciphertext))
    cipher.NewCTR(block, iv).XORKeyStream(out, ciphertext)
    return out, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
    return pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)
}

package statuscheck

import (
    "context"
    "errors"
    "time"

    "github.com/aws/aws-sdk-go-v2/aws"
    awscfg "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/credentials"
    "github.com/aws/aws-sdk-go-v2/service/s3"

    "github.com/local/scansort/internal/config"
)

// RedisPinger models the minimal Redis capability we need for checks.
type RedisPinger interface {
    Ping(ctx context.Context) error
}

// Recognizer models the engine facts the check reports. *ocr.Engine
// satisfies it.
type Recognizer interface {
    Available() bool
    Version() string
    Path() string
}

// Checker aggregates readiness checks for everything serve mode leans on.
type Checker struct {
    redis   RedisPinger
    engine  Recognizer
    archive config.ArchiveConfig
}

// Options configures the Checker.
type Options struct {
    Redis   RedisPinger
    Engine  Recognizer
    Archive config.ArchiveConfig
}

// Status represents the readiness of one subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles the subsystem statuses.
type Summary struct {
    Tesseract Status `json:"tesseract"`
    Redis     Status `json:"redis"`
    S3        Status `json:"s3"`
}

func New(opts Options) *Checker {
    return &Checker{redis: opts.Redis, engine: opts.Engine, archive: opts.Archive}
}

// Summary returns the current snapshot. A degraded tesseract or an
// unconfigured archive are reported as-is; only redis decides liveness.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Tesseract: c.checkTesseract(),
        Redis:     c.checkRedis(ctx),
        S3:        c.checkS3(ctx),
    }
}

func (c *Checker) checkTesseract() Status {
    if c.engine == nil {
        return Status{OK: false, Message: "engine unavailable"}
    }
    if !c.engine.Available() {
        return Status{OK: false, Message: "binary not found, running degraded"}
    }
    return Status{OK: true, Message: c.engine.Version() + " at " + c.engine.Path()}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
    if c.redis == nil {
        return Status{OK: false, Message: "client unavailable"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.redis.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
    if c.archive.Bucket == "" {
        return Status{OK: false, Message: "bucket not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    var opts []func(*awscfg.LoadOptions) error
    if c.archive.Region != "" {
        opts = append(opts, awscfg.WithRegion(c.archive.Region))
    }
    if c.archive.AccessKey != "" {
        opts = append(opts, awscfg.WithCredentialsProvider(
            credentials.NewStaticCredentialsProvider(c.archive.AccessKey, c.archive.SecretKey, "")))
    }
    cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
    if err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
        if c.archive.Endpoint != "" {
            o.BaseEndpoint = aws.String(c.archive.Endpoint)
            o.UsePathStyle = true
        }
    })
    if _, err := cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.archive.Bucket}); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "connected"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}

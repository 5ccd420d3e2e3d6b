package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned by every invocation when no usable tesseract
// binary was found at startup.
var ErrUnavailable = errors.New("tesseract binary not available")

// Default install locations, checked in order when no explicit path is set.
var defaultPaths = []string{
	"/usr/bin/tesseract",
	"/usr/local/bin/tesseract",
	"/opt/homebrew/bin/tesseract",
	`C:\Program Files\Tesseract-OCR\tesseract.exe`,
}

// Config sets up the engine.
type Config struct {
	BinaryPath string        // explicit binary, empty means discover
	Slots      int           // max concurrent tesseract processes
	Timeout    time.Duration // per invocation
}

// Engine shells out to the tesseract binary. All invocations share a slot
// semaphore so a large batch cannot fork more processes than configured.
type Engine struct {
	path      string
	version   string
	available bool
	timeout   time.Duration
	semaphore chan struct{}
}

// Options selects the recognition configuration for one invocation. Zero
// PSM and OEM fall back to the defaults (6, LSTM).
type Options struct {
	Lang      string
	PSM       int
	OEM       int
	DPI       int
	Whitelist string   // tessedit_char_whitelist, empty means unrestricted
	Extra     []string // user-configured args, appended verbatim
}

func (o Options) normalized() Options {
	if o.PSM == 0 {
		o.PSM = 6
	}
	if o.OEM == 0 {
		o.OEM = 1
	}
	return o
}

// New resolves the tesseract binary and checks its version once. A missing
// binary is not fatal: the engine comes up degraded and every invocation
// returns ErrUnavailable, so callers can still list and group existing text.
func New(cfg Config) *Engine {
	if cfg.Slots <= 0 {
		cfg.Slots = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	e := &Engine{
		timeout:   cfg.Timeout,
		semaphore: make(chan struct{}, cfg.Slots),
	}

	e.path = resolveBinary(cfg.BinaryPath)
	if e.path == "" {
		log.Warn().Msg("tesseract not found, engine degraded")
		return e
	}

	out, err := exec.Command(e.path, "--version").Output()
	if err != nil {
		log.Warn().Err(err).Str("path", e.path).Msg("tesseract version check failed, engine degraded")
		return e
	}
	e.version = firstLine(string(out))
	e.available = true

	log.Info().Str("path", e.path).Str("version", e.version).Int("slots", cfg.Slots).Msg("tesseract ready")
	return e
}

// resolveBinary picks the explicit path when it exists, then the known
// install locations, then PATH.
func resolveBinary(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		log.Warn().Str("path", explicit).Msg("configured tesseract path does not exist")
	}
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p, err := exec.LookPath("tesseract"); err == nil {
		return p
	}
	return ""
}

// Available reports whether a working binary was found.
func (e *Engine) Available() bool { return e.available }

// Version returns the first line of tesseract --version output.
func (e *Engine) Version() string { return e.version }

// Path returns the resolved binary path, empty in degraded mode.
func (e *Engine) Path() string { return e.path }

// Text recognizes imgPath and returns the raw text.
func (e *Engine) Text(ctx context.Context, imgPath string, o Options) (string, error) {
	out, err := e.run(ctx, buildArgs(imgPath, "stdout", o.normalized()), "text")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// PDF renders a searchable single-page PDF (image plus invisible text layer)
// to outStem+".pdf" and returns the path.
func (e *Engine) PDF(ctx context.Context, imgPath, outStem string, o Options) (string, error) {
	if _, err := e.run(ctx, buildArgs(imgPath, outStem, o.normalized(), "pdf"), "pdf"); err != nil {
		return "", err
	}
	outPath := outStem + ".pdf"
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("pdf output not created: %w", err)
	}
	return outPath, nil
}

// Words recognizes imgPath with word-level output and parses the TSV rows.
func (e *Engine) Words(ctx context.Context, imgPath string, o Options) ([]Word, error) {
	out, err := e.run(ctx, buildArgs(imgPath, "stdout", o.normalized(), "tsv"), "tsv")
	if err != nil {
		return nil, err
	}
	return parseTSV(string(out)), nil
}

// Detect runs orientation and script detection on imgPath.
func (e *Engine) Detect(ctx context.Context, imgPath string) (OSD, error) {
	out, err := e.run(ctx, []string{imgPath, "stdout", "--psm", "0"}, "osd")
	if err != nil {
		return OSD{}, err
	}
	return parseOSD(string(out))
}

func (e *Engine) run(ctx context.Context, args []string, mode string) ([]byte, error) {
	if !e.available {
		return nil, ErrUnavailable
	}

	// Acquire a process slot
	e.semaphore <- struct{}{}
	defer func() { <-e.semaphore }()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path, args...)
	// Tesseract's own OpenMP threading fights the worker pool for cores.
	cmd.Env = append(os.Environ(), "OMP_NUM_THREADS=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("mode", mode).Str("cmd", strings.Join(cmd.Args, " ")).Msg("tesseract command")

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("tesseract %s timed out after %v", mode, e.timeout)
		}
		return nil, fmt.Errorf("tesseract %s failed: %v: %s", mode, err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

// buildArgs assembles an invocation: image, output base, language and engine
// config, the fixed spacing flag, user args, then output configs (pdf, tsv).
func buildArgs(imgPath, outBase string, o Options, configs ...string) []string {
	args := []string{imgPath, outBase}
	if o.Lang != "" {
		args = append(args, "-l", o.Lang)
	}
	if o.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(o.DPI))
	}
	args = append(args, "--oem", strconv.Itoa(o.OEM), "--psm", strconv.Itoa(o.PSM))
	args = append(args, "-c", "preserve_interword_spaces=1")
	if o.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+o.Whitelist)
	}
	args = append(args, o.Extra...)
	args = append(args, configs...)
	return args
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

// Store persists downloaded media bytes and returns a durable URL.
type Store interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
}

// DiskStore writes media under a local directory and serves it from a base
// URL. Filenames are randomized to avoid collisions and path games from
// attacker-controlled names.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

func (s *DiskStore) Put(_ context.Context, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

type Config struct {
	Timeout     time.Duration
	MaxBodySize int
}

// Archiver downloads relay-hosted media (which expires) into permanent
// storage before the message row is written.
type Archiver struct {
	config *Config
	store  Store
	client *fasthttp.Client
}

func NewArchiver(config *Config, store Store) (*Archiver, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 32 << 20
	}

	return &Archiver{
		config: config,
		store:  store,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxResponseBodySize: config.MaxBodySize,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}, nil
}

// Archive fetches each inbound attachment and rewrites its URL to permanent
// storage. An attachment that cannot be fetched is dropped, not persisted
// with a dead link; the rest of the batch still goes through.
func (a *Archiver) Archive(ctx context.Context, attachments []model.InboundAttachment) []model.Attachment {
	if len(attachments) == 0 {
		return nil
	}

	archived := make([]model.Attachment, 0, len(attachments))
	for _, att := range attachments {
		url, err := a.fetch(ctx, att)
		if err != nil {
			logger.Warn("media archive failed, dropping attachment", "url", att.URL, "error", err)
			continue
		}
		archived = append(archived, model.Attachment{
			URL:      url,
			Kind:     model.KindFromMime(att.MimeType),
			Filename: att.Filename,
		})
	}
	if len(archived) == 0 {
		return nil
	}
	return archived
}

func (a *Archiver) fetch(ctx context.Context, att model.InboundAttachment) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(att.URL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(a.config.Timeout)
	}

	if err := a.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	return a.store.Put(ctx, att.Filename, body)
}

package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/logger"
)

// Outcome is the terminal state of publishing one document.
type Outcome string

const (
	// OutcomeLocalOnly means no write credential was configured; the document
	// was persisted locally and no remote call was attempted. Not a failure.
	OutcomeLocalOnly Outcome = "local-only"
	// OutcomeRemotePublished means the remote store accepted the document.
	OutcomeRemotePublished Outcome = "remote-published"
	// OutcomeRemoteFailed means the remote write failed; the local copy is the
	// fallback artifact and the next scheduled run supersedes it.
	OutcomeRemoteFailed Outcome = "remote-failed"
)

// Publisher writes documents locally and, when a credential is present, to
// the repository contents API. Remote writes use optimistic concurrency: the
// current revision token (sha) is fetched first and attached to the update so
// a concurrent run is never silently clobbered.
type Publisher struct {
	cfg   config.PublishConfig
	token string
	runID string
	store *Store

	readClient  *http.Client
	writeClient *http.Client
}

// New creates a publisher. An empty token degrades every publish to
// local-only mode.
func New(cfg config.PublishConfig, token, runID string) *Publisher {
	return &Publisher{
		cfg:         cfg,
		token:       token,
		runID:       runID,
		store:       NewStore(cfg.LocalDir),
		readClient:  &http.Client{Timeout: cfg.ReadTimeout},
		writeClient: &http.Client{Timeout: cfg.WriteTimeout},
	}
}

// Publish persists the document locally, then attempts the remote write when
// a credential is configured. A remote failure is reported through the
// outcome and error but is non-fatal to the run; the local copy already
// exists. No retries are made within a run.
func (p *Publisher) Publish(ctx context.Context, name string, doc interface{}) (Outcome, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return OutcomeRemoteFailed, fmt.Errorf("failed to serialize %s: %w", name, err)
	}

	if err := p.store.Save(name, data); err != nil {
		return OutcomeRemoteFailed, fmt.Errorf("failed to save %s locally: %w", name, err)
	}
	logger.Debug("Saved %s", p.store.Path(name))

	if p.token == "" {
		return OutcomeLocalOnly, nil
	}

	sha := p.fetchRevision(ctx, name)
	if err := p.put(ctx, name, data, sha); err != nil {
		return OutcomeRemoteFailed, err
	}
	return OutcomeRemotePublished, nil
}

// contentURL builds the contents-API URL for a document.
func (p *Publisher) contentURL(name string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s/%s",
		p.cfg.APIBaseURL, p.cfg.RepoOwner, p.cfg.RepoName, p.cfg.RemoteDir, name)
}

// fetchRevision returns the current revision token of the remote document, or
// "" when the document does not exist yet. Any failure here is tolerated: the
// write simply proceeds without a token, as a create.
func (p *Publisher) fetchRevision(ctx context.Context, name string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.contentURL(name), nil)
	if err != nil {
		return ""
	}
	p.setHeaders(req)

	resp, err := p.readClient.Do(req)
	if err != nil {
		logger.Warn("Revision check for %s failed: %v", name, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Not found means first publish of this name.
		return ""
	}

	var body struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Warn("Revision check for %s returned an unreadable body: %v", name, err)
		return ""
	}
	return body.SHA
}

// putRequest is the contents-API write payload.
type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

func (p *Publisher) put(ctx context.Context, name string, data []byte, sha string) error {
	payload := putRequest{
		Message: fmt.Sprintf("Actualización automática: %s (run %s)", name, p.runID),
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  p.cfg.Branch,
		SHA:     sha,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode write payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.contentURL(name), bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.writeClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote write for %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("remote write for %s rejected with status %d: %s", name, resp.StatusCode, detail)
	}
	return nil
}

func (p *Publisher) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+p.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

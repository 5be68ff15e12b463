package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/tutor/api"
	"github.com/papercomputeco/tutor/cmd/tutor/sqlitepath"
	"github.com/papercomputeco/tutor/pipeline"
	"github.com/papercomputeco/tutor/pkg/bootstrap"
	"github.com/papercomputeco/tutor/pkg/correction"
	"github.com/papercomputeco/tutor/pkg/llm"
)

// remoteTimeout bounds one turn against the API server. Generation can be
// slow.
const remoteTimeout = 5 * time.Minute

type turnResult struct {
	Result       *correction.Result
	MessageCount int
	Compacted    bool
}

// turner runs one tutoring turn either in-process or against a server.
type turner interface {
	Turn(ctx context.Context, threadID, userID, text string) (*turnResult, error)
	Close() error
}

func (c *chatCommander) newTurner(ctx context.Context) (turner, error) {
	if c.remote {
		return newRemoteTurner(c.cfg.Client.APITarget), nil
	}

	if err := sqlitepath.Apply(c.cfg, c.configDir); err != nil {
		return nil, err
	}

	rt, err := bootstrap.Open(ctx, bootstrap.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, err
	}
	return &localTurner{rt: rt}, nil
}

type localTurner struct {
	rt *bootstrap.Runtime
}

func (l *localTurner) Turn(ctx context.Context, threadID, userID, text string) (*turnResult, error) {
	out, err := l.rt.Pipeline.Run(ctx, pipeline.TurnRequest{
		ThreadID: threadID,
		UserID:   userID,
		Text:     text,
	})
	if err != nil {
		return nil, err
	}
	return &turnResult{
		Result:       out.Result,
		MessageCount: out.MessageCount,
		Compacted:    out.Compacted,
	}, nil
}

func (l *localTurner) Close() error {
	return l.rt.Close()
}

type remoteTurner struct {
	target string
	client *http.Client
}

func newRemoteTurner(target string) *remoteTurner {
	return &remoteTurner{
		target: strings.TrimRight(target, "/"),
		client: &http.Client{Timeout: remoteTimeout},
	}
}

func (r *remoteTurner) Turn(ctx context.Context, threadID, userID, text string) (*turnResult, error) {
	body, err := json.Marshal(api.ChatRequest{
		ThreadID: threadID,
		UserID:   userID,
		Message:  text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.target+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr llm.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var out api.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Correction == nil {
		return nil, errors.New("API response carried no correction")
	}

	return &turnResult{
		Result:       out.Correction,
		MessageCount: out.MessageCount,
		Compacted:    out.Compacted,
	}, nil
}

func (r *remoteTurner) Close() error {
	return nil
}

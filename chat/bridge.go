package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	// Wait blocks until the limiter permits an event to happen.
	Wait(ctx context.Context) error
}

// bridgeTransport drives the chat surface through a companion browser agent
// exposing the DOM-level primitives as a small JSON API. Selector fallback
// chains, popup text scanning and control discovery all live in the agent;
// this side only consumes categorized results.
type bridgeTransport struct {
	baseUrl     string
	httpClient  *http.Client
	rateLimiter RateLimiter
}

// NewBridgeTransport returns a Transport backed by the browser agent at
// baseUrl, throttled to rps requests per second. rps below 1 is clamped to
// 1, a zero-rate limiter would block Wait forever.
func NewBridgeTransport(baseUrl string, rps int) Transport {
	if rps < 1 {
		rps = 1
	}
	return &bridgeTransport{
		baseUrl:     baseUrl,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

//wire error codes reported by the agent, mapped to transport errors
var bridgeErrs = map[string]error{
	"composer_not_found":    ErrComposerNotFound,
	"send_ctrl_not_found":   ErrSendControlNotFound,
	"attach_ctrl_not_found": ErrAttachControlNotFound,
}

type bridgeErr struct {
	Error string `json:"error"`
}

type phoneReq struct {
	Phone string `json:"phone"`
}

type lineReq struct {
	Line string `json:"line"`
}

type fileReq struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

type presenceResp struct {
	Present bool `json:"present"`
}

type conditionResp struct {
	Category string `json:"category"`
	Present  bool   `json:"present"`
}

type openedResp struct {
	Opened bool `json:"opened"`
}

type visibleResp struct {
	Visible bool `json:"visible"`
}

func (b *bridgeTransport) OpenConversation(phone string) error {
	return b.call(http.MethodPost, "/conversation", phoneReq{Phone: phone}, nil)
}

func (b *bridgeTransport) ComposerPresent() (bool, error) {
	var resp presenceResp
	err := b.call(http.MethodGet, "/composer", nil, &resp)
	return resp.Present, err
}

func (b *bridgeTransport) ErrorCondition() (string, bool, error) {
	var resp conditionResp
	err := b.call(http.MethodGet, "/condition", nil, &resp)
	return resp.Category, resp.Present, err
}

func (b *bridgeTransport) InsertText(line string) error {
	return b.call(http.MethodPost, "/composer/text", lineReq{Line: line}, nil)
}

func (b *bridgeTransport) TriggerSend() error {
	return b.call(http.MethodPost, "/composer/send", nil, nil)
}

func (b *bridgeTransport) OpenAttachmentPicker() (bool, error) {
	var resp openedResp
	err := b.call(http.MethodPost, "/attachment/picker", nil, &resp)
	return resp.Opened, err
}

func (b *bridgeTransport) BindFile(ref AttachmentRef) error {
	return b.call(http.MethodPost, "/attachment/file", fileReq{Name: ref.Name, MediaType: ref.MediaType, Data: ref.Data}, nil)
}

func (b *bridgeTransport) AttachmentConfirmVisible() (bool, error) {
	var resp visibleResp
	err := b.call(http.MethodGet, "/attachment/confirm", nil, &resp)
	return resp.Visible, err
}

func (b *bridgeTransport) TriggerAttachmentConfirm() error {
	return b.call(http.MethodPost, "/attachment/confirm", nil, nil)
}

func (b *bridgeTransport) call(method, path string, in, out interface{}) error {
	err := b.rateLimiter.Wait(context.Background())
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, b.baseUrl+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var wireErr bridgeErr
		if err := json.NewDecoder(resp.Body).Decode(&wireErr); err == nil {
			if mapped, ok := bridgeErrs[wireErr.Error]; ok {
				return mapped
			}
			if wireErr.Error != "" {
				return errors.New("bridge error: " + wireErr.Error)
			}
		}
		return errors.New("bridge returned status " + resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return nil
}

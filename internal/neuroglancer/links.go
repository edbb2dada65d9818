// Package neuroglancer shortens Neuroglancer viewer URLs into stored
// states addressable by short keys.
package neuroglancer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
)

// ErrBadState indicates the viewer state could not be extracted or is
// not valid JSON.
var ErrBadState = errors.New("invalid neuroglancer state")

// Service manages short links backed by the store.
type Service struct {
	store *store.Store
	// baseURL is this server's external URL, used for state URLs.
	baseURL string
	// viewerURL is the default Neuroglancer deployment.
	viewerURL string
}

// NewService creates a link service.
func NewService(st *store.Store, baseURL, viewerURL string) *Service {
	return &Service{
		store:     st,
		baseURL:   strings.TrimRight(baseURL, "/"),
		viewerURL: viewerURL,
	}
}

// ShortenRequest carries either a full viewer URL or a raw state.
type ShortenRequest struct {
	URL       string `json:"url,omitempty"`
	State     string `json:"state,omitempty"`
	URLBase   string `json:"url_base,omitempty"`
	ShortName string `json:"short_name,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Shorten stores the viewer state and returns the created link.
func (s *Service) Shorten(ctx context.Context, username string, req ShortenRequest) (model.NeuroglancerLink, error) {
	state, urlBase, err := s.extractState(req)
	if err != nil {
		return model.NeuroglancerLink{}, err
	}

	now := time.Now().UTC()
	link := model.NeuroglancerLink{
		Username:  username,
		ShortKey:  newShortKey(),
		ShortName: req.ShortName,
		Title:     req.Title,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateNeuroglancerLink(ctx, link); err != nil {
		return model.NeuroglancerLink{}, err
	}
	return s.decorate(link, urlBase), nil
}

// Get returns the stored state JSON for a short key.
func (s *Service) Get(ctx context.Context, shortKey string) (model.NeuroglancerLink, error) {
	link, err := s.store.GetNeuroglancerLink(ctx, shortKey)
	if err != nil {
		return model.NeuroglancerLink{}, err
	}
	return s.decorate(link, ""), nil
}

// List returns a user's links with their URLs populated.
func (s *Service) List(ctx context.Context, username string) ([]model.NeuroglancerLink, error) {
	links, err := s.store.ListNeuroglancerLinks(ctx, username)
	if err != nil {
		return nil, err
	}
	out := make([]model.NeuroglancerLink, len(links))
	for i, link := range links {
		out[i] = s.decorate(link, "")
	}
	return out, nil
}

// Update replaces the stored state of a user's link from a new request.
func (s *Service) Update(ctx context.Context, username, shortKey string, req ShortenRequest) (model.NeuroglancerLink, error) {
	link, err := s.store.GetNeuroglancerLink(ctx, shortKey)
	if err != nil {
		return model.NeuroglancerLink{}, err
	}
	if link.Username != username {
		return model.NeuroglancerLink{}, store.ErrNotFound
	}

	if req.URL != "" || req.State != "" {
		state, _, err := s.extractState(req)
		if err != nil {
			return model.NeuroglancerLink{}, err
		}
		link.State = state
	}
	if req.ShortName != "" {
		link.ShortName = req.ShortName
	}
	if req.Title != "" {
		link.Title = req.Title
	}
	if err := s.store.UpdateNeuroglancerLink(ctx, username, link); err != nil {
		return model.NeuroglancerLink{}, err
	}
	return s.decorate(link, ""), nil
}

// Delete removes a user's link.
func (s *Service) Delete(ctx context.Context, username, shortKey string) error {
	return s.store.DeleteNeuroglancerLink(ctx, username, shortKey)
}

// extractState pulls the state JSON out of the request, either from the
// URL fragment after #! or from the raw state field, and canonicalizes
// it. The title override is written into the state.
func (s *Service) extractState(req ShortenRequest) (state, urlBase string, err error) {
	raw := req.State
	urlBase = req.URLBase

	if req.URL != "" {
		base, frag, found := strings.Cut(req.URL, "#!")
		if !found || frag == "" {
			return "", "", fmt.Errorf("%w: url has no #! fragment", ErrBadState)
		}
		decoded, err := url.QueryUnescape(frag)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrBadState, err)
		}
		raw = decoded
		if urlBase == "" {
			urlBase = base
		}
	}
	if raw == "" {
		return "", "", fmt.Errorf("%w: no state provided", ErrBadState)
	}

	var doc map[string]any
	if err := sonic.UnmarshalString(raw, &doc); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadState, err)
	}
	if req.Title != "" {
		doc["title"] = req.Title
	}
	canonical, err := sonic.MarshalString(doc)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrBadState, err)
	}
	return canonical, urlBase, nil
}

// decorate fills in the derived state and viewer URLs.
func (s *Service) decorate(link model.NeuroglancerLink, urlBase string) model.NeuroglancerLink {
	if urlBase == "" {
		urlBase = s.viewerURL
	}
	link.StateURL = fmt.Sprintf("%s/api/neuroglancer/state/%s", s.baseURL, link.ShortKey)
	link.ViewerURL = fmt.Sprintf("%s#!%s", urlBase, link.StateURL)
	return link
}

// newShortKey derives an 8-character key from a random UUID.
func newShortKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

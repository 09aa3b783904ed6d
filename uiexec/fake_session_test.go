package uiexec

import (
	"context"
	"errors"
	"sync"

	"github.com/parabank-qa/acceptor/browser"
)

// page is one rendered page state served by the fake session.
type page struct {
	content string
	url     string
}

// fakeSession is a scripted browser.Session. Navigation serves pages from a
// URL map and clicks transition to pages from a selector map; everything the
// caller does is recorded for assertions.
type fakeSession struct {
	mu sync.Mutex

	pages   map[string]page // navigate target -> resulting page
	onClick map[string]page // click selector -> resulting page
	current page

	navigations []string
	fills       map[string]string
	clicks      []string

	navErr        error
	fillErr       error
	clickErr      error
	screenshotErr error
	screenshots   []string
	closed        bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:   make(map[string]page),
		onClick: make(map[string]page),
		fills:   make(map[string]string),
	}
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	if s.navErr != nil {
		return s.navErr
	}
	if p, ok := s.pages[url]; ok {
		s.current = p
	} else {
		s.current = page{url: url}
	}
	return nil
}

func (s *fakeSession) Fill(_ context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fillErr != nil {
		return s.fillErr
	}
	s.fills[selector] = value
	return nil
}

func (s *fakeSession) Click(_ context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, selector)
	if s.clickErr != nil {
		return s.clickErr
	}
	if p, ok := s.onClick[selector]; ok {
		s.current = p
	}
	return nil
}

func (s *fakeSession) PageContent(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.content, nil
}

func (s *fakeSession) CurrentURL(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.url, nil
}

func (s *fakeSession) Screenshot(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenshotErr != nil {
		return s.screenshotErr
	}
	s.screenshots = append(s.screenshots, path)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) filled(selector string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.fills[selector]
	return v, ok
}

func (s *fakeSession) interactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fills) + len(s.clicks)
}

// fakeDriver hands out one prepared session per NewSession call.
type fakeDriver struct {
	mu       sync.Mutex
	sessions []*fakeSession
	next     *fakeSession
	err      error
}

func (d *fakeDriver) NewSession(_ context.Context) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.next == nil {
		return nil, errors.New("fake driver has no session prepared")
	}
	d.sessions = append(d.sessions, d.next)
	return d.next, nil
}

func (d *fakeDriver) sessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

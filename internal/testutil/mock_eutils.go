// Package testutil provides a mock E-utilities server for tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Paths served by the mock.
const (
	FetchPath = "/efetch.fcgi"
	LinkPath  = "/elink.fcgi"
)

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock.
type RecordedRequest struct {
	Path   string
	Body   string
	Header http.Header
}

// MockEutils is a configurable mock E-utilities server. By default efetch
// returns one experiment package per requested id that was registered with
// AddRun, and elink returns the links registered with SetProjectLinks.
type MockEutils struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	runs     map[string]string
	links    map[string][]string
	requests []RecordedRequest
}

// NewMockEutils creates and starts a mock server.
func NewMockEutils() *MockEutils {
	mock := &MockEutils{
		handlers: make(map[string]http.HandlerFunc),
		runs:     make(map[string]string),
		links:    make(map[string][]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:   r.URL.Path,
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case FetchPath:
			mock.fetchHandler(w, r)
		case LinkPath:
			mock.linkHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockEutils) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockEutils) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockEutils) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// AddRun registers a run. A fetch naming key returns a package whose primary
// id is runID. Pass the same value twice for accession lookups.
func (m *MockEutils) AddRun(key, runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[key] = runID
}

// SetProjectLinks registers the SRA uids linked to a BioProject uid.
func (m *MockEutils) SetProjectLinks(projectUID string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[projectUID] = ids
}

// SetHandler overrides the handler for a path.
func (m *MockEutils) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockEutils) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockEutils) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to path.
func (m *MockEutils) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (m *MockEutils) fetchHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	var pkgs []string
	for _, id := range strings.Split(r.PostForm.Get("id"), ",") {
		if run, ok := m.runs[id]; ok {
			pkgs = append(pkgs, PackageXML(run))
		}
	}
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, PackageSetXML(pkgs...))
}

func (m *MockEutils) linkHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	ids := m.links[r.PostForm.Get("from_uid")]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, LinkSetXML(r.PostForm.Get("from_uid"), ids...))
}

// NewGatedHandler writes head, flushes it to the client and then blocks
// until gate is closed before writing tail.
func NewGatedHandler(head string, gate <-chan struct{}, tail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, head)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, tail)
	}
}

// PackageXML returns a minimal experiment package for runID that carries
// every element required to collate it.
func PackageXML(runID string) string {
	return fmt.Sprintf(`<EXPERIMENT_PACKAGE>
  <EXPERIMENT accession="SRX-%[1]s">
    <TITLE>Sequencing of %[1]s</TITLE>
    <DESIGN>
      <DESIGN_DESCRIPTION>amplicon</DESIGN_DESCRIPTION>
      <LIBRARY_DESCRIPTOR>
        <LIBRARY_STRATEGY>AMPLICON</LIBRARY_STRATEGY>
        <LIBRARY_LAYOUT><SINGLE/></LIBRARY_LAYOUT>
      </LIBRARY_DESCRIPTOR>
    </DESIGN>
  </EXPERIMENT>
  <SAMPLE accession="SRS-%[1]s" alias="sample-%[1]s">
    <IDENTIFIERS><EXTERNAL_ID namespace="BioSample">SAMN-%[1]s</EXTERNAL_ID></IDENTIFIERS>
    <SAMPLE_ATTRIBUTES>
      <SAMPLE_ATTRIBUTE><TAG>run_label</TAG><VALUE>%[1]s</VALUE></SAMPLE_ATTRIBUTE>
    </SAMPLE_ATTRIBUTES>
  </SAMPLE>
  <STUDY><IDENTIFIERS><EXTERNAL_ID namespace="BioProject">PRJNA1</EXTERNAL_ID></IDENTIFIERS></STUDY>
  <RUN_SET>
    <RUN accession="%[1]s">
      <IDENTIFIERS><PRIMARY_ID>%[1]s</PRIMARY_ID></IDENTIFIERS>
      <SRAFiles><SRAFile filename="%[1]s.fastq.gz" supertype="Original"/></SRAFiles>
      <Statistics nreads="1" nspots="4"/>
    </RUN>
  </RUN_SET>
</EXPERIMENT_PACKAGE>`, runID)
}

// PackageSetXML wraps packages in an efetch response document.
func PackageSetXML(pkgs ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<EXPERIMENT_PACKAGE_SET>
` + strings.Join(pkgs, "\n") + `
</EXPERIMENT_PACKAGE_SET>
`
}

// LinkSetXML returns an elink response linking fromUID to ids.
func LinkSetXML(fromUID string, ids ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<eLinkResult><LinkSet><DbFrom>bioproject</DbFrom>`)
	fmt.Fprintf(&b, "<IdList><Id>%s</Id></IdList>", fromUID)
	b.WriteString("<LinkSetDb><DbTo>sra</DbTo><LinkName>bioproject_sra</LinkName>")
	for _, id := range ids {
		fmt.Fprintf(&b, "<Link><Id>%s</Id></Link>", id)
	}
	b.WriteString("</LinkSetDb></LinkSet></eLinkResult>\n")
	return b.String()
}

// ErrorXML returns a response body reporting msg in an ERROR element.
func ErrorXML(msg string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<eFetchResult><ERROR>%s</ERROR></eFetchResult>
`, msg)
}

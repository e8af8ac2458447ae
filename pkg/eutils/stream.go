package eutils

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/sra-metadata-client/pkg/sra"
	"github.com/rs/zerolog"
)

// DocumentStream yields experiment packages from an efetch response body as
// each one finishes arriving. It is single-pass and not safe for concurrent
// use.
type DocumentStream struct {
	body     io.ReadCloser
	decoder  *xml.Decoder
	endpoint string
	logger   zerolog.Logger

	err       error
	closeOnce sync.Once
	yielded   int
}

func newDocumentStream(body io.ReadCloser, endpoint string, logger zerolog.Logger) *DocumentStream {
	return &DocumentStream{
		body:     body,
		decoder:  xml.NewDecoder(body),
		endpoint: endpoint,
		logger:   logger,
	}
}

// Next returns the next document. It returns io.EOF once the response is
// exhausted, a *RemoteError if the response carries an ERROR element and a
// *TransportError if the body cannot be read or is not well-formed. Once an
// error is returned every later call returns it again.
func (s *DocumentStream) Next() (*sra.Document, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		tok, err := s.decoder.Token()
		if err != nil {
			return nil, s.fail(s.readError(err))
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case sra.ErrorTag:
			return nil, s.fail(s.remoteError(start))
		case sra.RecordTag:
			doc, err := s.capture(start)
			if err != nil {
				return nil, s.fail(err)
			}
			s.yielded++
			documentsTotal.Inc()
			return doc, nil
		}
	}
}

// Yielded returns the number of documents returned so far.
func (s *DocumentStream) Yielded() int {
	return s.yielded
}

// Close releases the response body. It is safe to call more than once.
func (s *DocumentStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// capture re-encodes the subtree opened by start and parses it into a
// document. Namespaces are dropped so lookups can use bare element names.
func (s *DocumentStream) capture(start xml.StartElement) (*sra.Document, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	if err := enc.EncodeToken(stripNamespace(start)); err != nil {
		return nil, s.decodeError(err)
	}

	for depth := 1; depth > 0; {
		tok, err := s.decoder.Token()
		if err != nil {
			return nil, s.readError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == sra.ErrorTag {
				return nil, s.remoteError(t)
			}
			depth++
			err = enc.EncodeToken(stripNamespace(t))
		case xml.EndElement:
			depth--
			err = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: t.Name.Local}})
		case xml.CharData:
			err = enc.EncodeToken(t)
		default:
			// Comments, directives and processing instructions carry no data.
		}
		if err != nil {
			return nil, s.decodeError(err)
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, s.decodeError(err)
	}

	doc, err := sra.ParseDocument(&buf)
	if err != nil {
		return nil, s.decodeError(err)
	}
	return doc, nil
}

// remoteError consumes the ERROR element opened by start.
func (s *DocumentStream) remoteError(start xml.StartElement) error {
	var e struct {
		Message string `xml:",chardata"`
	}
	if err := s.decoder.DecodeElement(&e, &start); err != nil {
		return s.readError(err)
	}
	errorsTotal.WithLabelValues(string(ErrorClassRemote)).Inc()
	s.logger.Warn().
		Str("endpoint", s.endpoint).
		Str("message", strings.TrimSpace(e.Message)).
		Int("yielded", s.yielded).
		Msg("E-utilities reported an error")
	return &RemoteError{Endpoint: s.endpoint, Message: strings.TrimSpace(e.Message)}
}

// readError maps a decoder failure. io.EOF passes through untouched.
func (s *DocumentStream) readError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return s.decodeError(err)
	}
	errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	return &TransportError{
		Endpoint:   s.endpoint,
		StatusCode: 200,
		ErrorClass: ErrorClassNetwork,
		Message:    "read response body",
		Err:        err,
	}
}

func (s *DocumentStream) decodeError(err error) error {
	errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
	return &TransportError{
		Endpoint:   s.endpoint,
		StatusCode: 200,
		ErrorClass: ErrorClassDecode,
		Message:    "malformed response",
		Err:        err,
	}
}

func (s *DocumentStream) fail(err error) error {
	s.err = err
	if !errors.Is(err, io.EOF) {
		s.logger.Debug().Err(err).Int("yielded", s.yielded).Msg("Document stream stopped")
	}
	return err
}

// stripNamespace drops namespace prefixes and declarations from an element.
func stripNamespace(start xml.StartElement) xml.StartElement {
	out := xml.StartElement{Name: xml.Name{Local: start.Name.Local}}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		out.Attr = append(out.Attr, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
	}
	return out
}

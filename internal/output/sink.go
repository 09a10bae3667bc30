// Package output renders classification results to the output stream.
//
// Default mode prints only hosts that resolved outside every known CDN/WAF
// range; CDN-fronted hosts are dropped. Append mode keeps CDN hosts too, and
// when a port list is given they expand to one line per port, so downstream
// scanners only probe the web ports an edge network actually serves.
package output

import (
	"bufio"
	"io"
	"sync"

	"github.com/valyala/fasttemplate"

	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/resolver"
)

// Sink serializes classification results into output lines. Emit is safe for
// concurrent use.
type Sink struct {
	mu sync.Mutex
	w  *bufio.Writer

	hostTpl *fasttemplate.Template
	portTpl *fasttemplate.Template

	appendPorts bool
	ports       []string
}

// NewSink builds a sink writing to w. When appendPorts is false, ports is
// ignored and CDN hosts are suppressed entirely; when it is true and ports is
// empty, CDN hosts print bare like any other resolved host.
func NewSink(w io.Writer, cfg *config.Config, appendPorts bool, ports []string) (*Sink, error) {
	hostTpl, err := fasttemplate.NewTemplate(cfg.General.HostTemplate, "{{", "}}")
	if err != nil {
		return nil, errors.NewConfigError("invalid host template", err)
	}
	portTpl, err := fasttemplate.NewTemplate(cfg.General.PortTemplate, "{{", "}}")
	if err != nil {
		return nil, errors.NewConfigError("invalid port template", err)
	}

	return &Sink{
		w:           bufio.NewWriter(w),
		hostTpl:     hostTpl,
		portTpl:     portTpl,
		appendPorts: appendPorts,
		ports:       ports,
	}, nil
}

// Emit writes the output line(s) for one classification. Hosts that failed to
// resolve produce no output at all.
func (s *Sink) Emit(result resolver.Classification) error {
	if result.Err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !result.CDN {
		return s.writeLine(s.hostTpl.ExecuteString(map[string]interface{}{
			"host": result.Host,
		}))
	}

	if !s.appendPorts {
		return nil
	}

	if len(s.ports) == 0 {
		return s.writeLine(s.hostTpl.ExecuteString(map[string]interface{}{
			"host": result.Host,
		}))
	}

	for _, port := range s.ports {
		line := s.portTpl.ExecuteString(map[string]interface{}{
			"host": result.Host,
			"port": port,
		})
		if err := s.writeLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) writeLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return errors.NewInternalError("failed to write output", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return errors.NewInternalError("failed to write output", err)
	}
	return nil
}

// Close flushes buffered output.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		return errors.NewInternalError("failed to flush output", err)
	}
	return nil
}

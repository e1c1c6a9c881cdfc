package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/errors"
	"github.com/pwalsh/cachemon/internal/logger"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	xmlRootOpen    = "<records>"
	xmlRootClose   = "</records>"

	// termMinLines is the header/footer margin reserved when clamping the
	// rendered block to the visible terminal rows.
	termMinLines = 3

	timestampLayout = "2006-01-02 15:04:05"
)

// Config is the run configuration consumed by the polling loop.
type Config struct {
	// Interval is the polling interval in 100 ms units (10 = 1 s).
	Interval int
	// Timeout is the run duration bound in seconds; negative means unbounded.
	Timeout int
	// TopLike re-sorts every tick by cache occupancy, descending.
	TopLike bool
	// Encoding selects the output encoding.
	Encoding Encoding
	// XMLPrologue emits the declaration and root-open element at loop start.
	XMLPrologue bool
}

// Loop drives periodic snapshot acquisition, sorting, rendering, and
// interval pacing until cancelled or timed out. Single-threaded: one
// goroutine owns polling, sorting, rendering, and sleeping; the context is
// the only asynchronous input, consulted at the loop top and during the
// interval sleep.
type Loop struct {
	backend  backend.Backend
	registry *Registry
	cfg      Config
	factors  Factors
	plan     ColumnPlan
	out      io.Writer
	log      logger.Logger
}

// NewLoop creates a polling loop over a started registry. The column plan is
// derived once from the registry's maximum observed event set.
func NewLoop(b backend.Backend, r *Registry, cfg Config, f Factors, out io.Writer, log logger.Logger) *Loop {
	return &Loop{
		backend:  b,
		registry: r,
		cfg:      cfg,
		factors:  f,
		plan:     ColumnPlan{Active: r.MaxEvents()},
		out:      out,
		log:      log,
	}
}

// Run executes the polling loop until the context is cancelled, the
// configured timeout elapses, or a backend poll fails. Cancellation is
// cooperative: a tick in progress completes its render pass before the stop
// condition is acted on. Run does not stop the group handles; the caller
// owns shutdown via Registry.Stop so handles are released exactly once.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("invalid monitoring interval %d", l.cfg.Interval),
			"The interval is given in 100 ms units and must be positive.")
	}

	groups := l.registry.Groups()
	mode := l.registry.Mode()
	enc := l.cfg.Encoding

	w := bufio.NewWriter(l.out)
	screen := termenv.NewOutput(w)

	istty := false
	fd := -1
	if f, ok := l.out.(*os.File); ok {
		fd = int(f.Fd())
		istty = term.IsTerminal(fd)
	}

	// Bandwidth deltas cover one interval; this scales them to per-second.
	coeff := 10.0 / float64(l.cfg.Interval)
	interval := time.Duration(l.cfg.Interval) * 100 * time.Millisecond

	header := l.plan.Header(mode, enc)
	switch {
	case enc == EncodingCSV:
		fmt.Fprintf(w, "%s\n", header)
	case enc == EncodingXML && l.cfg.XMLPrologue:
		fmt.Fprintf(w, "%s\n%s\n", xmlDeclaration, xmlRootOpen)
	}

	l.log.Debug("monitoring %d %s group(s), interval %dms, encoding %s",
		len(groups), mode, l.cfg.Interval*100, enc)

	working := make([]*backend.Group, len(groups))
	start := time.Now()
	ticks := 0

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		tickStart := time.Now()

		if err := l.backend.Poll(groups); err != nil {
			w.Flush()
			return errors.WrapWithCode(err, errors.ErrBackend,
				"failed to poll monitoring data", "")
		}

		// Work on a copy so sorting never disturbs the registry's fixed
		// group-index order used for shutdown.
		copy(working, groups)

		if istty {
			screen.ClearScreen()
		}

		timestamp := tickStart.Format(timestampLayout)
		if enc == EncodingText {
			fmt.Fprintf(w, "TIME %s\n", timestamp)
		}

		l.sortWorking(working, mode)

		n := len(working)
		if istty {
			n = clampRows(n, fd)
		}

		if enc == EncodingText {
			w.WriteString(header)
		}

		for _, g := range working[:n] {
			v := RowValues{
				LLC: float64(g.Values.LLC) * l.factors.LLC,
				MBL: float64(g.Values.MBMLocalDelta) * l.factors.MBL * coeff,
				MBR: float64(g.Values.MBMRemoteDelta) * l.factors.MBR * coeff,
			}
			switch enc {
			case EncodingXML:
				w.WriteString(l.plan.XMLRow(g, v, mode, timestamp))
			case EncodingCSV:
				w.WriteString(l.plan.CSVRow(g, v, mode, timestamp))
			default:
				w.WriteString(l.plan.TextRow(g, v, mode))
			}
		}
		if enc == EncodingText {
			w.WriteByte('\n')
		}

		if err := w.Flush(); err != nil {
			return errors.WrapWithCode(err, errors.ErrOutput,
				"error writing monitoring output", "")
		}
		ticks++

		// Second cancellation checkpoint: skip the sleep entirely when the
		// stop arrived during the render pass.
		if ctx.Err() != nil {
			break loop
		}

		if elapsed := time.Since(tickStart); elapsed < interval {
			timer := time.NewTimer(interval - elapsed)
			select {
			case <-ctx.Done():
				timer.Stop()
				break loop
			case <-timer.C:
			}
		}

		if l.cfg.Timeout >= 0 &&
			time.Since(start) > time.Duration(l.cfg.Timeout)*time.Second {
			break loop
		}
	}

	l.log.Debug("monitoring loop finished after %d tick(s)", ticks)

	if enc == EncodingXML {
		fmt.Fprintf(w, "%s\n", xmlRootClose)
	}
	if istty {
		w.WriteString("\n\n")
	}
	if err := w.Flush(); err != nil {
		return errors.WrapWithCode(err, errors.ErrOutput,
			"error writing monitoring output", "")
	}
	return nil
}

// sortWorking reorders the tick's working list: top-like mode sorts by cache
// occupancy descending in both modes; otherwise core mode sorts ascending by
// the group's first core id, and pid mode keeps poll order.
func (l *Loop) sortWorking(working []*backend.Group, mode Mode) {
	if l.cfg.TopLike {
		sort.SliceStable(working, func(i, j int) bool {
			return working[i].Values.LLC > working[j].Values.LLC
		})
	} else if mode == ModeCore {
		sort.SliceStable(working, func(i, j int) bool {
			return working[i].FirstCore() < working[j].FirstCore()
		})
	}
}

// clampRows limits the rendered group count so the drawn block plus the
// header/footer margin fits the terminal, re-querying the size each tick.
// Never clamps below one row.
func clampRows(n, fd int) int {
	_, rows, err := term.GetSize(fd)
	if err != nil || rows <= 0 {
		return n
	}
	if rows < termMinLines {
		rows = termMinLines
	}
	if n+termMinLines-1 > rows {
		n = rows - termMinLines + 1
	}
	return n
}

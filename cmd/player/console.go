package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/osa030/19player/internal/app/playback"
	"github.com/osa030/19player/internal/app/session/state"
)

const helpText = `Commands:
  p            pause / resume
  n            next track
  b            previous track (restarts the track past 3s)
  s <pos>      seek: seconds (90), duration (1m30s), or relative (+10, -5s)
  v <0-100>    volume
  m            mute / unmute
  r            cycle repeat (off, all, one)
  z            toggle shuffle
  i <n>        play queue entry n
  x <n>        remove queue entry n
  l            list the queue
  .            show status
  q            quit
`

var errUsage = errors.New("usage")

// console reads commands from a line-based input and renders session changes.
type console struct {
	ctrl *playback.Controller
	out  io.Writer
}

func newConsole(ctrl *playback.Controller, out io.Writer) *console {
	return &console{ctrl: ctrl, out: out}
}

// loop runs commands from r until EOF, "q", or ctx is done.
func (c *console) loop(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		quit, err := c.exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit {
			return
		}
	}
}

// exec runs a single command line. It reports whether the player should quit.
func (c *console) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "q", "quit":
		return true, nil
	case "h", "help", "?":
		fmt.Fprint(c.out, helpText)
	case "p":
		c.togglePlayback(ctx)
	case "n":
		c.ctrl.Next(ctx)
	case "b":
		c.ctrl.Previous(ctx)
	case "s":
		if len(args) != 1 {
			return false, errors.Wrap(errUsage, "s <pos>")
		}
		s := c.ctrl.Session()
		pos, err := parsePosition(args[0], s.PositionMs)
		if err != nil {
			return false, err
		}
		c.ctrl.Seek(ctx, pos)
	case "v":
		if len(args) != 1 {
			return false, errors.Wrap(errUsage, "v <0-100>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, errors.Wrapf(err, "invalid volume %q", args[0])
		}
		c.ctrl.SetVolume(ctx, float64(n)/100)
	case "m":
		c.ctrl.ToggleMute(ctx)
	case "r":
		mode := c.ctrl.ToggleRepeat()
		fmt.Fprintf(c.out, "repeat: %s\n", mode)
	case "z":
		on := c.ctrl.ToggleShuffle()
		fmt.Fprintf(c.out, "shuffle: %t\n", on)
	case "i", "x":
		if len(args) != 1 {
			return false, errors.Wrapf(errUsage, "%s <n>", cmd)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return false, errors.Newf("invalid queue entry %q", args[0])
		}
		if cmd == "i" {
			c.ctrl.PlayIndex(ctx, n-1)
		} else {
			c.ctrl.RemoveAt(ctx, n-1)
		}
	case "l":
		c.printQueue()
	case ".":
		c.printStatus(c.ctrl.Session())
	default:
		return false, errors.Newf("unknown command %q (h for help)", cmd)
	}
	return false, nil
}

// togglePlayback resumes, pauses, or restarts the current entry after the queue ran out.
func (c *console) togglePlayback(ctx context.Context) {
	s := c.ctrl.Session()
	if (s.State == playback.StateIdle || s.State == playback.StateError) && s.QueueCursor >= 0 {
		c.ctrl.PlayIndex(ctx, s.QueueCursor)
		return
	}
	c.ctrl.TogglePlayback(ctx)
}

// render is a state.Subscriber printing what a listener cares about.
func (c *console) render(s playback.Session, change state.Change) {
	switch {
	case change.Has(state.ChangeError) && s.ErrorDetail != "":
		fmt.Fprintf(c.out, "! %s\n", s.ErrorDetail)
	case change.Has(state.ChangeTrack), change.Has(state.ChangeState):
		c.printStatus(s)
	case change.Has(state.ChangeSettings):
		fmt.Fprintf(c.out, "volume %s  repeat %s  shuffle %t\n", formatVolume(s), s.RepeatMode, s.IsShuffled)
	}
}

func (c *console) printStatus(s playback.Session) {
	title := "-"
	if s.CurrentTrack != nil {
		title = s.CurrentTrack.DisplayName()
	}
	status := s.State.String()
	if s.IsBuffering {
		status += " (buffering)"
	}
	fmt.Fprintf(c.out, "[%s] %s  %s / %s  [%d/%d]\n",
		status, title,
		formatMs(s.PositionMs), formatMs(s.DurationMs),
		s.QueueCursor+1, s.QueueLength)
}

func (c *console) printQueue() {
	q := c.ctrl.Queue()
	cursor := q.Cursor()
	for i, t := range q.Tracks() {
		marker := " "
		if i == cursor {
			marker = ">"
		}
		fmt.Fprintf(c.out, "%s %3d. %s  %s\n", marker, i+1, t.DisplayName(), formatMs(t.DurationHintMs))
	}
}

// parsePosition resolves a seek argument to milliseconds. A leading sign makes
// it relative to current. Bare numbers are seconds.
func parsePosition(arg string, currentMs int64) (int64, error) {
	sign := int64(0)
	switch {
	case strings.HasPrefix(arg, "+"):
		sign, arg = 1, arg[1:]
	case strings.HasPrefix(arg, "-"):
		sign, arg = -1, arg[1:]
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(arg, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, errors.Newf("invalid position %q", arg)
		}
		d = time.Duration(secs * float64(time.Second))
	} else {
		d, err = str2duration.ParseDuration(arg)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid position %q", arg)
		}
	}

	if sign == 0 {
		return d.Milliseconds(), nil
	}
	return max(0, currentMs+sign*d.Milliseconds()), nil
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatVolume(s playback.Session) string {
	if s.IsMuted {
		return "muted"
	}
	return fmt.Sprintf("%d%%", int(s.Volume*100+0.5))
}

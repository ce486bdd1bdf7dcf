// Package interactive provides the command loop of attrbus-shell.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	jsoniter "github.com/json-iterator/go"

	"github.com/attrbus/attrbus-go/pkg/events"
	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/persistence"
	"github.com/attrbus/attrbus-go/pkg/subscription"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Lister enumerates persisted records.
type Lister interface {
	List(ctx context.Context, prefix string) ([]*persistence.Record, error)
}

// Options configures a Shell.
type Options struct {
	// Prompt is the readline prompt.
	Prompt string

	// Store lists persisted records for the "list" command. Optional.
	Store Lister

	// Subscriptions backs the "watch" command. Optional.
	Subscriptions *subscription.Manager

	// Timeout bounds each persistence command.
	Timeout time.Duration
}

// Shell runs commands against one model.
type Shell struct {
	m    *model.Model
	opts Options
	rl   *readline.Instance
	out  io.Writer

	// listeners bound with "on", by event name.
	listeners map[string]*events.Callback
}

// New creates a shell reading commands through readline.
func New(m *model.Model, opts Options) (*Shell, error) {
	if opts.Prompt == "" {
		opts.Prompt = "model> "
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          opts.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(m, opts, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(m *model.Model, opts Options, out io.Writer) *Shell {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Shell{
		m:         m,
		opts:      opts,
		out:       out,
		listeners: make(map[string]*events.Callback),
	}
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Close stops a pending Run by closing the terminal.
func (s *Shell) Close() error {
	if s.rl == nil {
		return nil
	}
	return s.rl.Close()
}

// Run reads and executes commands until quit, EOF, or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		s.printHelp()
	case "get", "g":
		s.cmdGet(args)
	case "show", "attrs", "a":
		s.cmdShow()
	case "set", "s":
		s.cmdSet(rest)
	case "unset":
		s.cmdUnset(args)
	case "clear":
		s.cmdClear(args)
	case "change", "flush":
		s.m.Change()
	case "changed":
		s.cmdChanged()
	case "previous", "prev":
		s.cmdPrevious(args)
	case "escape":
		s.cmdEscape(args)
	case "validate":
		s.cmdValidate()
	case "url":
		s.cmdURL()
	case "fetch":
		s.cmdFetch(ctx)
	case "save":
		s.cmdSave(ctx, args)
	case "destroy":
		s.cmdDestroy(ctx, args)
	case "list", "ls":
		s.cmdList(ctx, args)
	case "on":
		s.cmdOn(args)
	case "off":
		s.cmdOff(args)
	case "watch":
		s.cmdWatch(args)
	case "unwatch":
		s.cmdUnwatch(args)
	case "cycle":
		fmt.Fprintln(s.out, s.m.Cycle())
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  get <key>                  Show one attribute
  show                       Show all attributes
  set [-s] <key> <value>     Set an attribute (value is JSON or a bare string; -s is silent)
  unset [-s] <key>           Remove an attribute
  clear [-s]                 Remove all attributes
  change                     Report outstanding silent changes
  changed                    Show the changes of the current cycle
  previous [key]             Show previous values
  escape <key>               Show the HTML-escaped value
  validate                   Run the validator on the current state
  url                        Show the model address
  fetch                      Reload from the store
  save [-wait] [key value]   Persist, optionally setting one attribute first
  destroy [-wait]            Delete from the store
  list [prefix]              List stored records
  on <event>                 Print whenever event fires ("all" for every event)
  off [event]                Stop printing event (or all events)
  watch <interval> [keys..]  Coalesced change notifications
  unwatch <id>               Stop a watch
  cycle                      Show the notification cycle state
  quit                       Exit
`)
}

// parseValue decodes a command argument as JSON, falling back to the raw
// string for bare words.
func parseValue(raw string) any {
	var v any
	if err := json.UnmarshalFromString(raw, &v); err == nil {
		return v
	}
	return raw
}

func formatValue(v any) string {
	s, err := json.MarshalToString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func (s *Shell) printAttrs(attrs map[string]any) {
	if len(attrs) == 0 {
		fmt.Fprintln(s.out, "(none)")
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "  %s = %s\n", k, formatValue(attrs[k]))
	}
}

func (s *Shell) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: get <key>")
		return
	}
	if !s.m.Has(args[0]) {
		fmt.Fprintf(s.out, "%s is not set\n", args[0])
		return
	}
	fmt.Fprintf(s.out, "%s = %s\n", args[0], formatValue(s.m.Get(args[0])))
}

func (s *Shell) cmdShow() {
	fmt.Fprintf(s.out, "cid %s", s.m.CID())
	if !s.m.IsNew() {
		fmt.Fprintf(s.out, ", id %s", formatValue(s.m.ID()))
	}
	fmt.Fprintln(s.out)
	s.printAttrs(s.m.Attributes())
}

// silentFlag strips a leading -s from a raw argument string.
func silentFlag(rest string) (string, bool) {
	if after, ok := strings.CutPrefix(rest, "-s "); ok {
		return strings.TrimSpace(after), true
	}
	if rest == "-s" {
		return "", true
	}
	return rest, false
}

func (s *Shell) cmdSet(rest string) {
	rest, silent := silentFlag(rest)
	key, raw, ok := strings.Cut(rest, " ")
	if !ok || key == "" {
		fmt.Fprintln(s.out, "Usage: set [-s] <key> <value>")
		return
	}
	if !s.m.SetKey(key, parseValue(strings.TrimSpace(raw)), model.SetOptions{Silent: silent}) {
		fmt.Fprintf(s.out, "Rejected: %v\n", s.m.ValidationError())
	}
}

func (s *Shell) cmdUnset(args []string) {
	silent := len(args) > 0 && args[0] == "-s"
	if silent {
		args = args[1:]
	}
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unset [-s] <key>")
		return
	}
	if !s.m.Unset(args[0], model.SetOptions{Silent: silent}) {
		fmt.Fprintf(s.out, "Rejected: %v\n", s.m.ValidationError())
	}
}

func (s *Shell) cmdClear(args []string) {
	silent := len(args) > 0 && args[0] == "-s"
	if !s.m.Clear(model.SetOptions{Silent: silent}) {
		fmt.Fprintf(s.out, "Rejected: %v\n", s.m.ValidationError())
	}
}

func (s *Shell) cmdChanged() {
	changed, ok := s.m.ChangedAttributes()
	if !ok {
		fmt.Fprintln(s.out, "(no changes)")
		return
	}
	s.printAttrs(changed)
}

func (s *Shell) cmdPrevious(args []string) {
	if len(args) == 1 {
		fmt.Fprintf(s.out, "%s was %s\n", args[0], formatValue(s.m.Previous(args[0])))
		return
	}
	s.printAttrs(s.m.PreviousAttributes())
}

func (s *Shell) cmdEscape(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: escape <key>")
		return
	}
	fmt.Fprintln(s.out, s.m.Escape(args[0]))
}

func (s *Shell) cmdValidate() {
	if err := s.m.Validate(); err != nil {
		fmt.Fprintf(s.out, "Invalid: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Valid")
}

func (s *Shell) cmdURL() {
	u, err := s.m.URL()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, u)
}

func waitFlag(args []string) ([]string, bool) {
	if len(args) > 0 && args[0] == "-wait" {
		return args[1:], true
	}
	return args, false
}

func (s *Shell) cmdFetch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.m.Fetch(ctx); err != nil {
		fmt.Fprintf(s.out, "Fetch failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Fetched")
}

func (s *Shell) cmdSave(ctx context.Context, args []string) {
	args, wait := waitFlag(args)

	var attrs map[string]any
	switch len(args) {
	case 0:
	case 1:
		fmt.Fprintln(s.out, "Usage: save [-wait] [key value]")
		return
	default:
		attrs = map[string]any{args[0]: parseValue(strings.Join(args[1:], " "))}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.m.Save(ctx, attrs, model.SaveOptions{Wait: wait}); err != nil {
		fmt.Fprintf(s.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Saved (id %s)\n", formatValue(s.m.ID()))
}

func (s *Shell) cmdDestroy(ctx context.Context, args []string) {
	_, wait := waitFlag(args)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.m.Destroy(ctx, model.SaveOptions{Wait: wait}); err != nil {
		fmt.Fprintf(s.out, "Destroy failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Destroyed")
}

func (s *Shell) cmdList(ctx context.Context, args []string) {
	if s.opts.Store == nil {
		fmt.Fprintln(s.out, "No store configured")
		return
	}
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	recs, err := s.opts.Store.List(ctx, prefix)
	if err != nil {
		fmt.Fprintf(s.out, "List failed: %v\n", err)
		return
	}
	if len(recs) == 0 {
		fmt.Fprintln(s.out, "(no records)")
		return
	}
	for _, rec := range recs {
		fmt.Fprintf(s.out, "  %s  %s\n", rec.URL, formatValue(rec.Attrs))
	}
}

func (s *Shell) cmdOn(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: on <event>")
		return
	}
	name := args[0]
	if name == "*" {
		name = events.All
	}
	if _, ok := s.listeners[name]; ok {
		fmt.Fprintf(s.out, "Already printing %s\n", name)
		return
	}

	var cb *events.Callback
	if name == events.All {
		cb = events.Listen(func(_ any, args ...any) {
			fmt.Fprintf(s.out, "[event] %v\n", args[0])
		})
	} else {
		cb = events.Listen(func(_ any, args ...any) {
			if len(args) > 1 {
				if _, isAttr := model.AttributeKey(name); isAttr {
					fmt.Fprintf(s.out, "[event] %s %s\n", name, formatValue(args[1]))
					return
				}
				if err, ok := args[1].(error); ok {
					fmt.Fprintf(s.out, "[event] %s %v\n", name, err)
					return
				}
			}
			fmt.Fprintf(s.out, "[event] %s\n", name)
		})
	}
	s.m.On(name, cb, s)
	s.listeners[name] = cb
}

func (s *Shell) cmdOff(args []string) {
	if len(args) == 0 {
		s.m.Off("", nil, s)
		s.listeners = make(map[string]*events.Callback)
		return
	}
	name := args[0]
	if name == "*" {
		name = events.All
	}
	cb, ok := s.listeners[name]
	if !ok {
		fmt.Fprintf(s.out, "Not printing %s\n", name)
		return
	}
	s.m.Off(name, cb, s)
	delete(s.listeners, name)
}

func (s *Shell) cmdWatch(args []string) {
	if s.opts.Subscriptions == nil {
		fmt.Fprintln(s.out, "Subscriptions not enabled")
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: watch <interval> [keys...]")
		return
	}
	interval, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid interval: %v\n", err)
		return
	}

	id, err := s.opts.Subscriptions.Subscribe(s.m, args[1:], interval, subscription.DefaultMaxInterval)
	if err != nil {
		fmt.Fprintf(s.out, "Watch failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Watching (id %d)\n", id)
}

func (s *Shell) cmdUnwatch(args []string) {
	if s.opts.Subscriptions == nil || len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unwatch <id>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid id: %v\n", err)
		return
	}
	if err := s.opts.Subscriptions.Unsubscribe(uint32(id)); err != nil {
		fmt.Fprintf(s.out, "Unwatch failed: %v\n", err)
	}
}

// PrintNotification writes a subscription notification.
func (s *Shell) PrintNotification(n subscription.Notification) {
	kind := "change"
	switch {
	case n.IsPriming:
		kind = "priming"
	case n.IsHeartbeat:
		kind = "heartbeat"
	}
	fmt.Fprintf(s.out, "[watch %d] %s %s\n", n.SubscriptionID, kind, formatValue(n.Attributes))
}

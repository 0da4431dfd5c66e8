package failover_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cexll/chatkit-go/pkg/bus"
	"github.com/cexll/chatkit-go/pkg/chat"
	"github.com/cexll/chatkit-go/pkg/failover"
	"github.com/cexll/chatkit-go/pkg/respond"
	"github.com/cexll/chatkit-go/pkg/store"
)

type scriptedResponder struct {
	name  string
	reply string
	err   error

	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (s *scriptedResponder) Respond(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *scriptedResponder) Configured() bool { return true }
func (s *scriptedResponder) Name() string     { return s.name }

func newFixture(t *testing.T, active respond.Responder) (*chat.Log, *respond.Registry) {
	t.Helper()
	log := chat.NewLog(store.NewMemoryStore(), bus.New())
	reg := respond.NewRegistry()
	if err := reg.Register("eliza", respond.NewLocal(respond.WithLocalDelay(0))); err != nil {
		t.Fatalf("register eliza: %v", err)
	}
	if err := reg.Register("remote", active); err != nil {
		t.Fatalf("register remote: %v", err)
	}
	return log, reg
}

func TestSendSuccessAppendsUserAndBot(t *testing.T) {
	log, reg := newFixture(t, &scriptedResponder{name: "Remote", reply: "hi there"})
	ctrl := failover.NewController(log, reg, "eliza")

	turn, err := ctrl.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if log.Count() != 2 {
		t.Fatalf("count = %d, want 2", log.Count())
	}
	all := log.All()
	if !all[0].IsUser || all[0].Text != "Hello" || all[0].Edited {
		t.Fatalf("user turn = %+v", all[0])
	}
	if all[1].IsUser || all[1].Text == "" {
		t.Fatalf("bot turn = %+v", all[1])
	}
	if turn.Failed || turn.User.ID != all[0].ID || turn.Bot.ID != all[1].ID {
		t.Fatalf("turn = %+v", turn)
	}
}

func TestSendWithLocalService(t *testing.T) {
	log, reg := newFixture(t, &scriptedResponder{name: "Remote"})
	ctrl := failover.NewController(log, reg, "eliza")

	turn, err := ctrl.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.Failed {
		t.Fatalf("local turn failed: %+v", turn)
	}
	if log.Count() != 2 {
		t.Fatalf("count = %d", log.Count())
	}
}

func TestSendFailureAppendsSingleErrorReply(t *testing.T) {
	remote := &scriptedResponder{name: "Remote", err: errors.New("Gemini API key is not configured")}
	log, reg := newFixture(t, remote)
	if _, err := reg.Switch("remote"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	ctrl := failover.NewController(log, reg, "eliza")

	turn, err := ctrl.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("send must not propagate responder errors, got %v", err)
	}
	if !turn.Failed {
		t.Fatal("turn not marked failed")
	}

	// One user turn plus exactly one bot reply carrying the error.
	if log.Count() != 2 {
		t.Fatalf("count = %d, want 2", log.Count())
	}
	bot := log.All()[1]
	if bot.IsUser {
		t.Fatal("error reply attributed to the user")
	}
	if want := "Gemini API key is not configured"; !strings.Contains(bot.Text, want) {
		t.Fatalf("bot text %q does not embed %q", bot.Text, want)
	}
}

func TestSendFailureOfferAccepted(t *testing.T) {
	remote := &scriptedResponder{name: "Remote", err: errors.New("boom")}
	log, reg := newFixture(t, remote)
	_, _ = reg.Switch("remote")

	var offeredService string
	ctrl := failover.NewController(log, reg, "eliza",
		failover.WithPrompter(failover.PromptFunc(func(ctx context.Context, serviceName string, cause error) bool {
			offeredService = serviceName
			return true
		})),
	)

	turn, err := ctrl.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if offeredService != "Remote" {
		t.Fatalf("offer named %q", offeredService)
	}
	if turn.SwitchedTo != "eliza" {
		t.Fatalf("switchedTo = %q", turn.SwitchedTo)
	}
	if reg.ActiveID() != "eliza" {
		t.Fatalf("active = %s, want eliza", reg.ActiveID())
	}
}

func TestSendFailureOfferDeclined(t *testing.T) {
	remote := &scriptedResponder{name: "Remote", err: errors.New("boom")}
	log, reg := newFixture(t, remote)
	_, _ = reg.Switch("remote")

	ctrl := failover.NewController(log, reg, "eliza",
		failover.WithPrompter(failover.PromptFunc(func(context.Context, string, error) bool { return false })),
	)

	turn, err := ctrl.Send(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.SwitchedTo != "" {
		t.Fatalf("switchedTo = %q, want none", turn.SwitchedTo)
	}
	if reg.ActiveID() != "remote" {
		t.Fatalf("active = %s, want remote (declined offers leave it unchanged)", reg.ActiveID())
	}
}

func TestSendFailureOnFallbackServiceNeverOffers(t *testing.T) {
	// The active service IS the fallback; even with a prompter, no offer.
	log := chat.NewLog(store.NewMemoryStore(), bus.New())
	reg := respond.NewRegistry()
	failing := &scriptedResponder{name: "Local", err: errors.New("boom")}
	_ = reg.Register("eliza", failing)

	offered := false
	ctrl := failover.NewController(log, reg, "eliza",
		failover.WithPrompter(failover.PromptFunc(func(context.Context, string, error) bool {
			offered = true
			return true
		})),
	)

	if _, err := ctrl.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if offered {
		t.Fatal("offer made while the fallback itself was active")
	}
}

func TestSendRejectsEmptyText(t *testing.T) {
	log, reg := newFixture(t, &scriptedResponder{name: "Remote", reply: "hi"})
	ctrl := failover.NewController(log, reg, "eliza")

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := ctrl.Send(context.Background(), input); !errors.Is(err, failover.ErrEmptyMessage) {
			t.Fatalf("send(%q) err = %v, want ErrEmptyMessage", input, err)
		}
	}
	if log.Count() != 0 {
		t.Fatalf("count = %d, empty submissions must not touch the log", log.Count())
	}
}

func TestSendSecondSubmissionWhileInFlight(t *testing.T) {
	remote := &scriptedResponder{
		name:    "Remote",
		reply:   "slow reply",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	log, reg := newFixture(t, remote)
	_, _ = reg.Switch("remote")
	ctrl := failover.NewController(log, reg, "eliza")

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), "first")
		done <- err
	}()
	<-remote.started

	if _, err := ctrl.Send(context.Background(), "second"); !errors.Is(err, failover.ErrInFlight) {
		t.Fatalf("concurrent send err = %v, want ErrInFlight", err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}

	// Only the first submission reached the log: its user turn and bot turn
	// are adjacent, with nothing interleaved.
	if log.Count() != 2 {
		t.Fatalf("count = %d, want 2", log.Count())
	}
	if remote.calls != 1 {
		t.Fatalf("responder calls = %d, want 1", remote.calls)
	}
}

func TestSendAllowsSequentialSubmissions(t *testing.T) {
	log, reg := newFixture(t, &scriptedResponder{name: "Remote", reply: "hi"})
	ctrl := failover.NewController(log, reg, "eliza")

	for i := 0; i < 3; i++ {
		if _, err := ctrl.Send(context.Background(), "hello"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if log.Count() != 6 {
		t.Fatalf("count = %d, want 6", log.Count())
	}
}

func TestPrompterContextCancellation(t *testing.T) {
	remote := &scriptedResponder{name: "Remote", err: errors.New("boom")}
	log, reg := newFixture(t, remote)
	_, _ = reg.Switch("remote")

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := failover.NewController(log, reg, "eliza",
		failover.WithPrompter(failover.PromptFunc(func(ctx context.Context, _ string, _ error) bool {
			cancel()
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Second):
				return true
			}
		})),
	)

	turn, err := ctrl.Send(ctx, "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if turn.SwitchedTo != "" || reg.ActiveID() != "remote" {
		t.Fatal("canceled prompt must decline the switch")
	}
}

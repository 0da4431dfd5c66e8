package respond

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

const defaultLocalDelay = 100 * time.Millisecond

type rule struct {
	pattern *regexp.Regexp
	replies []string
}

// localRules are matched in order against the lowercased input. The first
// capture group, when present, is reflected into the reply.
var localRules = []rule{
	{regexp.MustCompile(`\bi need (.*)`), []string{
		"Why do you need %s?",
		"Would it really help you to get %s?",
		"Are you sure you need %s?",
	}},
	{regexp.MustCompile(`\bwhy don'?t you ([^\?]*)\??`), []string{
		"Do you really think I don't %s?",
		"Perhaps eventually I will %s.",
		"Do you really want me to %s?",
	}},
	{regexp.MustCompile(`\bwhy can'?t i ([^\?]*)\??`), []string{
		"Do you think you should be able to %s?",
		"If you could %s, what would you do?",
		"I don't know -- why can't you %s?",
	}},
	{regexp.MustCompile(`\bi am (.*)`), []string{
		"How long have you been %s?",
		"How do you feel about being %s?",
		"Do you enjoy being %s?",
	}},
	{regexp.MustCompile(`\bi'?m (.*)`), []string{
		"Why do you say you're %s?",
		"How does being %s make you feel?",
	}},
	{regexp.MustCompile(`\bi feel (.*)`), []string{
		"Tell me more about feeling %s.",
		"Do you often feel %s?",
		"When do you usually feel %s?",
	}},
	{regexp.MustCompile(`\bbecause (.*)`), []string{
		"Is that the real reason?",
		"What other reasons come to mind?",
		"Does that reason apply to anything else?",
	}},
	{regexp.MustCompile(`\b(mother|father|family|parent)\b`), []string{
		"Tell me more about your family.",
		"How do you get along with your family?",
		"Does your family relationship relate to your feelings today?",
	}},
	{regexp.MustCompile(`\b(sorry|apologi)`), []string{
		"There is no need to apologize.",
		"What feelings do you have when you apologize?",
	}},
	{regexp.MustCompile(`\b(hello|hi|hey)\b`), []string{
		"Hello. How are you feeling today?",
		"Hi there. What would you like to talk about?",
		"Hello. What's on your mind?",
	}},
	{regexp.MustCompile(`\bhow are you\b`), []string{
		"I'm just a program, but thank you for asking. How are you?",
		"Let's focus on you. How are you feeling?",
	}},
	{regexp.MustCompile(`\byes\b`), []string{
		"You seem quite certain.",
		"Can you elaborate on that?",
	}},
	{regexp.MustCompile(`\bno\b`), []string{
		"Why not?",
		"Are you saying no just to be negative?",
	}},
	{regexp.MustCompile(`\bcomputer|machine|program\b`), []string{
		"Do computers worry you?",
		"Why do you mention computers?",
	}},
}

var localDefaults = []string{
	"Please tell me more.",
	"Let's change focus a bit... tell me about your day.",
	"Can you elaborate on that?",
	"I see. And what does that tell you?",
	"How does that make you feel?",
	"Interesting. Please go on.",
}

// reflections swap first and second person when echoing captured fragments.
var reflections = map[string]string{
	"am": "are", "i": "you", "i'd": "you would", "i've": "you have",
	"i'll": "you will", "my": "your", "me": "you", "you": "me",
	"your": "my", "yours": "mine", "are": "am", "was": "were",
	"myself": "yourself",
}

// Local computes replies with a rule-based pattern matcher. It is always
// configured and never fails; the short delay only simulates the latency of
// a real backend.
type Local struct {
	name  string
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// LocalOption customizes the local responder.
type LocalOption func(*Local)

// WithLocalDelay overrides the simulated latency. Zero disables it.
func WithLocalDelay(d time.Duration) LocalOption {
	return func(l *Local) { l.delay = d }
}

// WithLocalSeed makes reply selection deterministic for tests.
func WithLocalSeed(seed int64) LocalOption {
	return func(l *Local) { l.rng = rand.New(rand.NewSource(seed)) }
}

// NewLocal returns the rule-based local responder.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		name:  "Eliza (Local)",
		delay: defaultLocalDelay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the display name.
func (l *Local) Name() string { return l.name }

// Configured always reports true; the local responder needs no credential.
func (l *Local) Configured() bool { return true }

// Respond produces a reply after the nominal delay. It returns an error only
// when ctx is canceled before the delay elapses.
func (l *Local) Respond(ctx context.Context, text string) (string, error) {
	if l.delay > 0 {
		timer := time.NewTimer(l.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	input := strings.ToLower(strings.TrimSpace(text))
	for _, r := range localRules {
		m := r.pattern.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		reply := r.replies[l.pick(len(r.replies))]
		if len(m) > 1 && strings.Contains(reply, "%s") {
			return fmt.Sprintf(reply, reflect(m[1])), nil
		}
		if strings.Contains(reply, "%s") {
			continue
		}
		return reply, nil
	}
	return localDefaults[l.pick(len(localDefaults))], nil
}

func (l *Local) pick(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

func reflect(fragment string) string {
	words := strings.Fields(strings.TrimRight(fragment, ".!?"))
	for i, word := range words {
		if swapped, ok := reflections[word]; ok {
			words[i] = swapped
		}
	}
	return strings.Join(words, " ")
}

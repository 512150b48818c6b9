package httptransport

import "sync"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// agentRotator hands out User-Agent strings in round-robin order.
type agentRotator struct {
	mu     sync.Mutex
	agents []string
	next   int
}

// newAgentRotator pins every request to fixed when it is set and rotates the
// built-in list otherwise.
func newAgentRotator(fixed string) *agentRotator {
	if fixed != "" {
		return &agentRotator{agents: []string{fixed}}
	}
	return &agentRotator{agents: defaultUserAgents}
}

func (a *agentRotator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ua := a.agents[a.next]
	a.next = (a.next + 1) % len(a.agents)
	return ua
}

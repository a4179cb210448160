package usecase

// scrollState is the progress of the scroll-until-stable loop on one page
type scrollState int

const (
	scrollScrolling scrollState = iota
	scrollSettling
	scrollStable
	scrollTimedOut
)

func (s scrollState) String() string {
	switch s {
	case scrollScrolling:
		return "scrolling"
	case scrollSettling:
		return "settling"
	case scrollStable:
		return "stable"
	case scrollTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// scrollMachine decides when progressive loading has finished.
// Every observation consumes one attempt, so a page never scrolls more than
// maxAttempts times.
type scrollMachine struct {
	state       scrollState
	lastHeight  int
	attempts    int
	maxAttempts int
}

func newScrollMachine(initialHeight, maxAttempts int) *scrollMachine {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &scrollMachine{
		state:       scrollScrolling,
		lastHeight:  initialHeight,
		maxAttempts: maxAttempts,
	}
}

// scrolled records that a scroll was issued and the page is settling
func (m *scrollMachine) scrolled() {
	if m.state == scrollScrolling {
		m.state = scrollSettling
	}
}

// observe feeds the height measured after settling
func (m *scrollMachine) observe(height int) scrollState {
	if m.done() {
		return m.state
	}

	m.attempts++
	switch {
	case height == m.lastHeight:
		m.state = scrollStable
	case m.attempts >= m.maxAttempts:
		m.state = scrollTimedOut
	default:
		m.state = scrollScrolling
	}
	m.lastHeight = height
	return m.state
}

func (m *scrollMachine) done() bool {
	return m.state == scrollStable || m.state == scrollTimedOut
}

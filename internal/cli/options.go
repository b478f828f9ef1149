package cli

import "time"

type Options struct {
	Args         []string
	APIBaseURL   string
	JSON         bool
	Timeout      time.Duration
	OrderTakenBy int
}

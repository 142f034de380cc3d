package main

import (
	"os"

	progressbar "github.com/schollz/progressbar/v2"
)

// barProgress renders pipeline progress as a terminal progress bar on
// stderr, keeping stdout clean for report output. The bar is built once the
// chunk count is known; Advance before Total is a no-op.
type barProgress struct {
	description string
	bar         *progressbar.ProgressBar
}

func newBarProgress(description string) *barProgress {
	return &barProgress{description: description}
}

func (p *barProgress) Total(n int) {
	p.bar = progressbar.NewOptions(n,
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func (p *barProgress) Advance(status string) {
	if p.bar == nil {
		return
	}
	p.bar.Add(1)
}

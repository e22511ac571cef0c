package scraper

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// frontier is the stack of pages waiting to be visited during one crawl.
// The most recently pushed URL is visited first. With a visited cache, URLs
// that were already popped are dropped; without one every push is visited.
type frontier struct {
	stack   []string
	visited *lru.Cache[string, struct{}]
}

func newFrontier(visitedSize int) (*frontier, error) {
	f := &frontier{}
	if visitedSize <= 0 {
		return f, nil
	}
	visited, err := lru.New[string, struct{}](visitedSize)
	if err != nil {
		return nil, err
	}
	f.visited = visited
	return f, nil
}

func (f *frontier) Push(urls ...string) {
	f.stack = append(f.stack, urls...)
}

func (f *frontier) Pop() (string, bool) {
	for len(f.stack) > 0 {
		last := len(f.stack) - 1
		next := f.stack[last]
		f.stack = f.stack[:last]

		if f.visited != nil {
			if f.visited.Contains(next) {
				continue
			}
			f.visited.Add(next, struct{}{})
		}
		return next, true
	}
	return "", false
}

func (f *frontier) Len() int {
	return len(f.stack)
}

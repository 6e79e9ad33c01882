package service

import "context"

// Mutation is an optimistic change: Apply updates local state at once,
// Commit persists it and Revert undoes Apply when Commit fails.
type Mutation struct {
	Apply  func()
	Commit func(ctx context.Context) error
	Revert func()
}

// Run applies, commits and reverts on failure.
func (m Mutation) Run(ctx context.Context) error {
	if m.Apply != nil {
		m.Apply()
	}
	if m.Commit == nil {
		return nil
	}
	if err := m.Commit(ctx); err != nil {
		if m.Revert != nil {
			m.Revert()
		}
		return err
	}
	return nil
}

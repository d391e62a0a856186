package renderer

// Unwind collects cleanups for a multi-step GL setup and runs them in
// reverse if a later step fails.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = nil
}

// Discard forgets the cleanups once setup succeeded.
func (u *Unwind) Discard() {
	*u = nil
}

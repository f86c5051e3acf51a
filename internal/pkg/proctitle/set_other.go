//go:build !linux

package proctitle

// Set only rewrites os.Args[0] outside Linux.
func Set(title string) error {
	_, err := prepare(title)
	return err
}

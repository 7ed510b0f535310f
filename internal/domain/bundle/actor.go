package bundle

import "fmt"

// Actor identifies who produced a build or release.
type Actor struct {
	// Hostname is the machine the build ran on.
	Hostname string
	// Username is the system user who ran the build.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as "username@hostname" for logs and manifests.
func (a *Actor) String() string {
	if a == nil {
		return ""
	}

	return fmt.Sprintf("%s@%s", a.Username, a.Hostname)
}

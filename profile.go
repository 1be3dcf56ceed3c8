package main

import "fmt"

// A Profile is one configuration of the paste scenario. The scenario is the
// same for every profile; only the expiration labels and whether tracing is
// on by default differ.
type Profile struct {
	Name      string
	ExpiresIn []string
	Syntaxes  []string
	Tracing   bool
}

var syntaxes = []string{"text", "python", "go", "json"}

var profiles = map[string]Profile{
	"basic": {
		Name:      "basic",
		ExpiresIn: []string{"10m", "1h", "1d"},
		Syntaxes:  syntaxes,
	},
	"traced": {
		Name:      "traced",
		ExpiresIn: []string{"10m", "20m", "30m", "1h"},
		Syntaxes:  syntaxes,
		Tracing:   true,
	},
}

func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// DefaultSender is the sender used when --sender=auto.
func (p Profile) DefaultSender() string {
	if p.Tracing {
		return "otel"
	}
	return "dummy"
}

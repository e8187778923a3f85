package manifest

import (
	"bytes"
	"strings"
)

// Builtin actor names.
const (
	ActorSystem  = "system"
	ActorAccount = "account"
	ActorRelay   = "relay"
)

const nativePrefix = "fvm-native:"

// NativeCode returns the code blob that stands for a Go-implemented actor.
// The version suffix keeps code CIDs distinct across bundles.
func NativeCode(name, version string) []byte {
	return []byte(nativePrefix + name + "@" + version)
}

// ParseNativeCode returns the actor name encoded by NativeCode.
func ParseNativeCode(code []byte) (string, bool) {
	if !bytes.HasPrefix(code, []byte(nativePrefix)) {
		return "", false
	}
	name, _, _ := strings.Cut(string(code[len(nativePrefix):]), "@")
	return name, name != ""
}

func builtinBundle(name, version string) Bundle {
	return Bundle{
		Name: name,
		Actors: map[string][]byte{
			ActorSystem:  NativeCode(ActorSystem, version),
			ActorAccount: NativeCode(ActorAccount, version),
			ActorRelay:   NativeCode(ActorRelay, version),
		},
	}
}

// Builtin is the process-wide registry holding the bundles shipped with
// this module.
var Builtin = NewRegistry()

func init() {
	Builtin.Register(builtinBundle("actors/v6", "v6"))
	Builtin.Register(builtinBundle("actors/v7", "v7"))
}

// DefaultResolver resolves against DefaultTable and Builtin.
func DefaultResolver() Resolver {
	return Resolver{Table: DefaultTable, Registry: Builtin}
}

package facts

import "strings"

// NamespaceSeparator returns the separator between namespace segments for a
// language tag. Members are always joined with ".".
func NamespaceSeparator(language string) string {
	if language == "php" {
		return `\`
	}
	return "."
}

// Qualify joins a file namespace and a local dotted name into an FQN.
func Qualify(language, namespace, local string) string {
	namespace = strings.TrimPrefix(namespace, `\`)
	switch {
	case local == "":
		return namespace
	case namespace == "":
		return local
	}
	return namespace + NamespaceSeparator(language) + local
}

// SplitMember splits "Owner.member" at the last ".". ok is false when name
// has no owner.
func SplitMember(name string) (owner, member string, ok bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}

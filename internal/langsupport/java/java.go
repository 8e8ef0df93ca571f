// Package java provides the Java diagnostic dialect: an ordered rule table
// over javac phrasing and the frame heuristics for JVM stack traces.
// Imported for its side effect of registering with langsupport.
package java

import (
	"github.com/mlinna/devlog/internal/langsupport"
	"github.com/mlinna/devlog/internal/normalize"
)

func init() {
	langsupport.Register(provider{})
}

type provider struct{}

func (provider) Lang() string { return "java" }

// rules is ordered: categories form a specificity hierarchy, and the first
// match wins, so "cannot find symbol ... variable" sits above the bare
// "cannot find symbol" it would otherwise lose to. Append-only; insert new
// specific rules before any general rule they could also satisfy.
var rules = []normalize.Rule{
	normalize.MustRule(`cannot find symbol[\s\S]*variable`, "cannot find symbol - variable"),
	normalize.MustRule(`cannot find symbol[\s\S]*method`, "cannot find symbol - method"),
	normalize.MustRule(`cannot find symbol[\s\S]*class`, "cannot find symbol - class"),
	normalize.MustRule(`cannot find symbol`, "cannot find symbol"),
	normalize.MustRule(`possible loss(y conversion| of precision)`, "lossy conversion"),
	normalize.MustRule(`incompatible types.*cannot be converted`, "incompatible types - conversion"),
	normalize.MustRule(`incompatible types`, "incompatible types"),
	normalize.MustRule(`inconvertible types`, "inconvertible types"),
	normalize.MustRule(`constructor .* cannot be applied`, "constructor cannot be applied"),
	normalize.MustRule(`method .* cannot be applied`, "method cannot be applied"),
	normalize.MustRule(`no suitable method found`, "no suitable method"),
	normalize.MustRule(`no suitable constructor found`, "no suitable constructor"),
	normalize.MustRule(`non-static .* cannot be referenced from a static context`, "non-static reference from static context"),
	normalize.MustRule(`variable .* might not have been initialized`, "variable not initialized"),
	normalize.MustRule(`variable .* is already defined`, "variable already defined"),
	normalize.MustRule(`method .* is already defined`, "method already defined"),
	normalize.MustRule(`class .* is already defined`, "class already defined"),
	normalize.MustRule(`duplicate class`, "duplicate class"),
	normalize.MustRule(`is public, should be declared in a file named`, "public class filename mismatch"),
	normalize.MustRule(`package .* does not exist`, "package does not exist"),
	normalize.MustRule(`missing return statement`, "missing return statement"),
	normalize.MustRule(`missing return value`, "missing return value"),
	normalize.MustRule(`unreachable statement`, "unreachable statement"),
	normalize.MustRule(`array required, but`, "array required"),
	normalize.MustRule(`bad operand types`, "bad operand types"),
	normalize.MustRule(`bad operand type`, "bad operand type"),
	normalize.MustRule(`unclosed string literal`, "unclosed string literal"),
	normalize.MustRule(`unclosed character literal`, "unclosed character literal"),
	normalize.MustRule(`unclosed comment`, "unclosed comment"),
	normalize.MustRule(`illegal start of expression`, "illegal start of expression"),
	normalize.MustRule(`illegal start of type`, "illegal start of type"),
	normalize.MustRule(`illegal character`, "illegal character"),
	normalize.MustRule(`reached end of file while parsing`, "end of file while parsing"),
	normalize.MustRule(`class, interface, or enum expected`, "class, interface, or enum expected"),
	normalize.MustRule(`';' expected`, "';' expected"),
	normalize.MustRule(`'\)' expected`, "')' expected"),
	normalize.MustRule(`'\(' expected`, "'(' expected"),
	normalize.MustRule(`'\}' expected`, "'}' expected"),
	normalize.MustRule(`'\{' expected`, "'{' expected"),
	normalize.MustRule(`'\]' expected`, "']' expected"),
	normalize.MustRule(`<identifier> expected`, "<identifier> expected"),
	normalize.MustRule(`expected`, "token expected"),
	normalize.MustRule(`might not have been initialized`, "not initialized"),
	normalize.MustRule(`unchecked or unsafe operations`, "unchecked operations"),
	normalize.MustRule(`deprecat`, "deprecation"),
	normalize.MustRule(`exception .* is never thrown`, "exception never thrown"),
	normalize.MustRule(`unreported exception`, "unreported exception"),
	normalize.MustRule(`cyclic inheritance`, "cyclic inheritance"),
	normalize.MustRule(`abstract.*cannot be instantiated`, "abstract class instantiated"),
}

func (provider) DiagnosticRules() []normalize.Rule { return rules }

// systemPrefixes cover the JDK namespaces; a frame whose class path starts
// with one of these is library code and skipped when picking the reported
// source location.
var systemPrefixes = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"com.sun.",
	"org.w3c.",
	"org.xml.",
	"org.omg.",
}

func (provider) SystemPrefixes() []string { return systemPrefixes }

var runtimeModuleMarkers = []string{
	"java.base/",
	"java.desktop/",
	"java.logging/",
	"java.sql/",
}

func (provider) RuntimeModuleMarkers() []string { return runtimeModuleMarkers }

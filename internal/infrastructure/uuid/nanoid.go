package uuid

import gonanoid "github.com/matoous/go-nanoid"

// Generator ID generator interface
type Generator interface {
	Generate() (string, error)
}

// NanoIDGenerator Generator implementation using NanoID
type NanoIDGenerator struct {
	Length   int
	Alphabet string // optional, nanoid default alphabet when empty
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator create a new `NanoIDGenerator` instance
func NewNanoIDGenerator(length int) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &NanoIDGenerator{Length: length}
}

// WithAlphabet restrict generated ids to the given alphabet
func (ns *NanoIDGenerator) WithAlphabet(alphabet string) *NanoIDGenerator {
	ns.Alphabet = alphabet
	return ns
}

// Generate generate a new id
func (ns *NanoIDGenerator) Generate() (string, error) {
	if ns.Alphabet != "" {
		return gonanoid.Generate(ns.Alphabet, ns.Length)
	}
	return gonanoid.Nanoid(ns.Length)
}

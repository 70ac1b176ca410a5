package randstr

import (
	"math/rand"
)

type Generator struct {
	alphabet []byte
}

func New(alphabet []byte) *Generator {
	return &Generator{alphabet: alphabet}
}

func (g *Generator) GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = g.alphabet[rand.Intn(len(g.alphabet))]
	}

	return string(b)
}

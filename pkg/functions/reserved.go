package functions

import (
	"strings"
	"sync"
)

// reservedWords is the process-wide set of flag tokens introduced by the
// catalogs alive in the process, with a count of the catalogs holding each.
var (
	reservedMu    sync.RWMutex
	reservedWords = map[string]int{}
)

func reserveWords(words []string) {
	reservedMu.Lock()
	defer reservedMu.Unlock()
	for _, w := range words {
		reservedWords[strings.ToUpper(w)]++
	}
}

func releaseWords(words []string) {
	reservedMu.Lock()
	defer reservedMu.Unlock()
	for _, w := range words {
		w = strings.ToUpper(w)
		if reservedWords[w] <= 1 {
			delete(reservedWords, w)
			continue
		}
		reservedWords[w]--
	}
}

// IsReservedWord reports whether a live catalog reserves word.
func IsReservedWord(word string) bool {
	reservedMu.RLock()
	defer reservedMu.RUnlock()
	return reservedWords[strings.ToUpper(word)] > 0
}

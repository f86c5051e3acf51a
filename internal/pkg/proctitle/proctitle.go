// Package proctitle names the server process.
package proctitle

import (
	"errors"
	"os"
	"strings"
)

// Name is the title used by the server binary.
const Name = "gallery-server"

func prepare(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("proctitle: empty title")
	}
	if len(os.Args) > 0 {
		os.Args[0] = title
	}
	return title, nil
}

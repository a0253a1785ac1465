//go:build minimal

package extract

import "github.com/gcbaptista/go-document-repository/model"

func richHandlers() map[model.Format]handler {
	return nil
}

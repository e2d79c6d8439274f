// Package alpha holds a plugin whose simple name collides with beta's.
package alpha

import "github.com/goliatone/go-xview/pkg/plugin"

type Echo struct {
	plugin.Base
}

func (Echo) Say(s string) string { return "alpha:" + s }

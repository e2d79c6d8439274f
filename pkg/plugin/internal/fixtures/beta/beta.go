// Package beta holds a plugin whose simple name collides with alpha's.
package beta

import "github.com/goliatone/go-xview/pkg/plugin"

type Echo struct {
	plugin.Base
}

func (Echo) Say(s string) string { return "beta:" + s }

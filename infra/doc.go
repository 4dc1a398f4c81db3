// Package infra groups the adapters that talk to external systems on behalf
// of the dispatch engine. Subpackages implement interfaces from core and
// register themselves by name, so core never imports them.
package infra

// Package grammartest provides small grammars shared by package tests.
package grammartest

import "github.com/quocvuong92/clirepl/internal/grammar"

// SimpleDefinition is a file-transfer grammar:
//
//	download <path> [--check-sha]
//	upload
//	login [-u|--username <username>] [--mode secure|insecure]
func SimpleDefinition() grammar.Definition {
	return grammar.Definition{
		Name: "simple",
		Commands: []grammar.CommandDef{
			{
				Name: "download",
				Help: "Download a file",
				Args: []grammar.ArgDef{{Name: "path", Help: "Remote path", Required: true}},
				Flags: []grammar.FlagDef{
					{Name: "check_sha", Type: "bool", Help: "Verify the checksum"},
				},
			},
			{Name: "upload", Help: "Upload a file"},
			{
				Name: "login",
				Help: "Log in",
				Flags: []grammar.FlagDef{
					{Name: "username", Short: "u", Help: "Account name"},
					{Name: "mode", Help: "Connection mode", Values: []grammar.ValueDef{
						{Literal: "secure"},
						{Literal: "insecure", Help: "Skip certificate checks"},
					}},
				},
			},
		},
	}
}

// Simple builds SimpleDefinition.
func Simple() *grammar.Model {
	return grammar.MustBuild(SimpleDefinition())
}

// Redis builds a key-value grammar with a repeatable trailing positional and
// an integer flag:
//
//	get <key>
//	set <key> <value> [--ttl <n>]
//	smembers <key>
//	sadd <key> <values>...
//	config get|set ...
func Redis() *grammar.Model {
	key := grammar.ArgDef{Name: "key", Required: true}
	return grammar.MustBuild(grammar.Definition{
		Name: "redis",
		Commands: []grammar.CommandDef{
			{Name: "get", Args: []grammar.ArgDef{key}},
			{
				Name:  "set",
				Args:  []grammar.ArgDef{key, {Name: "value", Required: true}},
				Flags: []grammar.FlagDef{{Name: "ttl", Type: "int", Default: "0"}},
			},
			{Name: "smembers", Args: []grammar.ArgDef{key}},
			{Name: "sadd", Args: []grammar.ArgDef{key, {Name: "values", Required: true, Multiple: true}}},
			{
				Name: "config",
				Flags: []grammar.FlagDef{
					{Name: "tag", Short: "t", Multiple: true},
				},
				Commands: []grammar.CommandDef{
					{Name: "get", Args: []grammar.ArgDef{{Name: "param", Values: []grammar.ValueDef{
						{Literal: "maxmemory"}, {Literal: "maxclients"}, {Literal: "max"},
					}}}},
					{Name: "set", Args: []grammar.ArgDef{{Name: "param", Required: true}, {Name: "setting", Required: true}}},
				},
			},
		},
	})
}

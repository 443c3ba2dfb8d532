//go:build !rttidebug

package rtti

const debugBuild = false

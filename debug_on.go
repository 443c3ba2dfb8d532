//go:build rttidebug

package rtti

// debugBuild turns size validation on for every Serializer.
const debugBuild = true

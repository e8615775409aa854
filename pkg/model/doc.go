// Package model defines the order wizard's shared types: template descriptors
// with their typed capability sets, the prompt field definitions exchanged at
// every step boundary, and the stored user profile used as a render fallback.
// The types carry no behaviour beyond small accessors so the registry, wizard
// and render packages can share them without import cycles.
package model

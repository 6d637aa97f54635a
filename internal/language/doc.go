// Package language provides unified language code normalization.
//
// All language-related conversions (BCP-47 canonicalization, base language
// extraction, loose equality) are consolidated here to avoid duplication
// across the configuration, gateway, and assembly packages.
package language

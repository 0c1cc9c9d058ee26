// Package timing holds the per-key timing policy table.
//
// The table is a total function from key position to Policy. Positions
// without an explicit entry get the default policy
// {BaseTerm, ForceHold: true, IgnoreInterrupt: false}. The table is built
// once at startup from configuration entries and is read-only afterwards,
// so the resolver never branches on key identity itself.
package timing

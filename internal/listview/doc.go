// Package listview implements the filter and pagination state shared by the
// console's list screens.
//
// A View keeps filters, a fixed limit and the current offset; changing the
// filters rewinds to offset zero and paging only moves by whole windows.
// Unbounded covers lists the backend returns in full. Both fetch through
// querycache so mutations elsewhere invalidate them, and both can Follow a
// polling interval for watch mode.
package listview

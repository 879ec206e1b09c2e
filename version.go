package treelang

// Version is the library version. Release builds override it with
// -ldflags "-X github.com/treelang/treelang.Version=...".
var Version = "1.0.0"

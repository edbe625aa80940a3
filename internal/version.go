package internal

// Version is the current release of transdata.
const Version = "0.3.0"

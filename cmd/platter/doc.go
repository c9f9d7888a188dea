// Command platter rips audio CDs to a FLAC library and mirrors them into an
// MP3 library. It aggregates album metadata from the configured catalog
// services and prior rips, names output files from configurable templates,
// and journals every rip session.
package main

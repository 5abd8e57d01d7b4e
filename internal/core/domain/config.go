package domain

// Specimen describes one set of files to scan and how they map onto the target system.
type Specimen struct {
	// Archive is the container the extract paths were unpacked from. It is scanned
	// as an entry itself and recorded as provenance of every extracted file.
	Archive string
	// ExtractPaths are the directories or files to scan.
	ExtractPaths []string
	// InstallPrefix replaces the extract path when computing install paths.
	InstallPrefix string
}

// ScanConfig is the loaded scan configuration.
type ScanConfig struct {
	Workers int
	Exclude []string
	// OmitUnrecognized leaves files of unknown type out of the graph.
	OmitUnrecognized bool
	Specimens        []Specimen
}

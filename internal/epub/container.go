package epub

import (
	"encoding/xml"
	"fmt"
)

// containerPath is the fixed, well-known location of the container descriptor.
const containerPath = "META-INF/container.xml"

// containerXML mirrors the container descriptor structure.
type containerXML struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// resolvePackagePath locates the package document inside the archive by
// parsing the container descriptor. The first rootfile declaration with
// a full-path wins.
func resolvePackagePath(a *Archive) (string, error) {
	content, err := a.ReadBytes(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerNotFound, err)
	}

	var c containerXML
	if err := xml.Unmarshal(content, &c); err != nil {
		return "", fmt.Errorf("%w: parse container.xml: %v", ErrPackageNotFound, err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			return normalizePath(rf.FullPath), nil
		}
	}

	return "", fmt.Errorf("%w: container.xml declares no rootfile", ErrPackageNotFound)
}

package constants

import "strings"

// AllowedExtensions holds the extensions accepted for upload and inbox discovery.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// PDFMagic is the header every accepted upload must start with.
const PDFMagic = "%PDF"

// DocumentTypeConvenio tags every movement produced by the label extractor.
const DocumentTypeConvenio = "EXTRATO_CONVENIO_MOVIMENTACAO"

// ExtractionMethodLabel is the only extraction method in use.
const ExtractionMethodLabel = "label_based"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a file extension (with or without the dot) is accepted.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

package ocr

// Config configures the external OCR tools.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "por"
	TessdataDir   string
	DPI           int // rasterization DPI, default 200
	PSM           int // page segmentation mode, default 4 (single column of variable sizes)

	TempDir string // parent for per-batch image dirs; "" uses os.TempDir
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "por"
	}
	if c.DPI <= 0 {
		c.DPI = 200
	}
	if c.PSM <= 0 {
		c.PSM = 4
	}
	return c
}

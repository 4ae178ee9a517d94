package uploads

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

type format struct {
	mime  string
	label string
}

var (
	formatJPEG = format{mime: "image/jpeg", label: "JPEG"}
	formatPNG  = format{mime: "image/png", label: "PNG"}
	formatWebP = format{mime: "image/webp", label: "WebP"}
	formatPDF  = format{mime: "application/pdf", label: "PDF"}
)

// Identity documents and certificates arrive as phone photos as often as scans.
var formatsByKind = map[enums.UploadKind][]format{
	enums.UploadKindINEFront:       {formatJPEG, formatPNG, formatWebP, formatPDF},
	enums.UploadKindINEBack:        {formatJPEG, formatPNG, formatWebP, formatPDF},
	enums.UploadKindPetPhoto:       {formatJPEG, formatPNG, formatWebP},
	enums.UploadKindVetCertificate: {formatPDF, formatJPEG, formatPNG, formatWebP},
	enums.UploadKindLegalDocument:  {formatPDF},
}

// detected is a sniffed file whose format is allowed for its upload kind.
type detected struct {
	format
	ext string
}

func (d detected) isPDF() bool { return d.mime == formatPDF.mime }

// detect sniffs data. The declared content type and file extension are never
// trusted.
func detect(kind enums.UploadKind, data []byte) (detected, bool) {
	sniffed := mimetype.Detect(data)
	for _, f := range formatsByKind[kind] {
		if sniffed.Is(f.mime) {
			return detected{format: f, ext: sniffed.Extension()}, true
		}
	}
	return detected{}, false
}

// acceptedFormats renders the allowed formats for an error message, e.g.
// "JPEG, PNG or WebP".
func acceptedFormats(kind enums.UploadKind) string {
	formats := formatsByKind[kind]
	labels := make([]string, len(formats))
	for i, f := range formats {
		labels[i] = f.label
	}
	if len(labels) < 2 {
		return strings.Join(labels, "")
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " or " + labels[len(labels)-1]
}

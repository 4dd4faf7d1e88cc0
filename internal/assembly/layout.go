package assembly

import (
	"fmt"
	"math"
	"strings"

	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/subtitle"
)

// Frame geometry. The frame is portrait 9:16.
const (
	FrameWidth  = 1080
	FrameHeight = 1920

	BackgroundColor = "black"
	ShadowColor     = "black@0.5"
	ShadowOffset    = 15

	// CropFraction of the scaled illustration is trimmed from top and bottom.
	CropFraction = 0.10

	// HeaderXFrac is the horizontal center of the header, as a fraction of
	// frame width.
	HeaderXFrac = 0.5

	SubtitleFade = 0.2
)

const (
	DefaultHeader = "THINKTOK\n뇌 깨우기"
	DefaultBrand  = "야무진 동생"
)

// DefaultFooter is the two-line footer slogan.
var DefaultFooter = [2]string{"동생이 야무지게", "말아줄게"}

// Derived positions.
var (
	imageTop         = (FrameHeight - FrameWidth) / 2
	subtitleImageH   = int(math.Round(FrameWidth * 0.8))
	subtitleTop      = (FrameHeight-subtitleImageH)/2 + subtitleImageH + 20
	headerFontSize   = int(float64(imageTop) * 0.2 * 0.7 * 1.3)
	subtitleFontSize = int(math.Floor(30 * 1.69))
	brandFontSize    = 50
	brandTop         = 200

	footerHeight    = int(math.Floor(FrameHeight * 0.18))
	footerTextTop   = int(FrameHeight-FrameHeight*3.0/16) + 40
	footerPanelTop  = footerTextTop - int(float64(footerHeight)*0.2)
	footerTextWidth = int(FrameWidth * 0.6)
	footerTextLeft  = int(FrameWidth * 5.0 / 9)
	footerLarge     = int(float64(footerHeight) * 0.4 / 2 * 1.1 * 1.7)
	footerSmall     = int(float64(footerLarge) / 2 * 0.9)
	logoHeight      = int(float64(footerHeight) * 0.3 * 1.1 * 1.1 * 1.7)
)

const (
	footerPanelColor = "0xF0C8A0"
	footerTextColor  = "0x333333"
	logoBrightness   = 0.4
)

// Style is the branding applied over every video.
type Style struct {
	Header        string // defaults to DefaultHeader
	Brand         string // defaults to DefaultBrand
	Footer        [2]string
	FontFile      string // header, footer and subtitles
	BrandFontFile string
	LogoPath      string
}

// DefaultStyle returns the stock branding with the given fonts and logo.
func DefaultStyle(font, brandFont, logo string) Style {
	return Style{
		Header:        DefaultHeader,
		Brand:         DefaultBrand,
		Footer:        DefaultFooter,
		FontFile:      font,
		BrandFontFile: brandFont,
		LogoPath:      logo,
	}
}

// SceneGeometry places an illustration of srcW x srcH on the frame: scaled
// to frame width, CropFraction trimmed from top and bottom, centered, with
// the shadow offset behind it.
func SceneGeometry(srcW, srcH int) (img media.Rect, scaledH, cropTop int, shadow media.Rect) {
	scaledH = FrameWidth
	if srcW > 0 && srcH > 0 {
		scaledH = int(math.Round(float64(srcH) * FrameWidth / float64(srcW)))
	}
	cropTop = int(float64(scaledH) * CropFraction)
	kept := scaledH - 2*cropTop
	img = media.Rect{X: 0, Y: (FrameHeight - kept) / 2, W: FrameWidth, H: kept}
	shadow = media.Rect{X: img.X + ShadowOffset, Y: img.Y + ShadowOffset, W: img.W, H: img.H}
	return img, scaledH, cropTop, shadow
}

// SceneSpec builds the render request for one flushed group.
func SceneSpec(g Group, srcW, srcH int, audio, output string, preset media.EncodePreset) media.SceneSpec {
	img, scaledH, cropTop, shadow := SceneGeometry(srcW, srcH)
	return media.SceneSpec{
		ImagePath:    g.ImagePath,
		AudioPath:    audio,
		Duration:     g.Duration(),
		Output:       output,
		FrameWidth:   FrameWidth,
		FrameHeight:  FrameHeight,
		Background:   BackgroundColor,
		Image:        img,
		ScaledHeight: scaledH,
		CropTop:      cropTop,
		Shadow:       shadow,
		ShadowColor:  ShadowColor,
		Preset:       preset,
	}
}

// Overlays is everything drawn over the concatenated scenes.
type Overlays struct {
	Boxes  []media.Box
	Images []media.ImageOverlay
	Texts  []media.TextOverlay
}

// Logo is the decoded size of the footer logo; zero means no logo.
type Logo struct {
	Width, Height int
}

// scaledWidth is the logo width after scaling to logoHeight.
func (l Logo) scaledWidth() int {
	if l.Width <= 0 || l.Height <= 0 {
		return 0
	}
	return int(math.Round(float64(l.Width) * float64(logoHeight) / float64(l.Height)))
}

// Overlays lays out header, brand, footer panel, footer text, logo and one
// timed subtitle per caption. Caption times are on the source timeline.
func (s Style) Overlays(captions []subtitle.Caption, logo Logo) Overlays {
	var ov Overlays

	header := s.Header
	if header == "" {
		header = DefaultHeader
	}
	lines := strings.Count(header, "\n") + 1
	ov.Texts = append(ov.Texts, media.TextOverlay{
		Text:     header,
		FontFile: s.FontFile,
		FontSize: headerFontSize,
		Color:    "white",
		X:        fmt.Sprintf("w*%g-text_w/2", HeaderXFrac),
		Y:        fmt.Sprint(imageTop - headerFontSize*lines + headerFontSize),
	})

	brand := s.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	ov.Texts = append(ov.Texts, media.TextOverlay{
		Text:     brand,
		FontFile: s.BrandFontFile,
		FontSize: brandFontSize,
		Color:    "white",
		X:        "(w-text_w)/2",
		Y:        fmt.Sprint(brandTop),
	})

	ov.Boxes = append(ov.Boxes, media.Box{
		Rect:  media.Rect{X: 0, Y: footerPanelTop, W: FrameWidth, H: footerHeight},
		Color: footerPanelColor,
	})

	left := footerTextLeft
	if lw := logo.scaledWidth(); lw > 0 && s.LogoPath != "" {
		left = (FrameWidth - (lw + lw/3 + footerTextWidth)) / 2
		ov.Images = append(ov.Images, media.ImageOverlay{
			Path:       s.LogoPath,
			Height:     logoHeight,
			X:          left + footerTextWidth,
			Y:          footerTextTop,
			Brightness: logoBrightness,
		})
	}
	footer := s.Footer
	if footer == [2]string{} {
		footer = DefaultFooter
	}
	centered := fmt.Sprintf("%d+(%d-text_w)/2", left, footerTextWidth)
	ov.Texts = append(ov.Texts,
		media.TextOverlay{
			Text:     footer[0],
			FontFile: s.FontFile,
			FontSize: footerSmall,
			Color:    footerTextColor,
			X:        centered,
			Y:        fmt.Sprint(footerTextTop),
		},
		media.TextOverlay{
			Text:     footer[1],
			FontFile: s.FontFile,
			FontSize: footerLarge,
			Color:    footerTextColor,
			X:        centered,
			Y:        fmt.Sprint(footerTextTop + footerSmall + 10),
		},
	)

	for _, c := range captions {
		ov.Texts = append(ov.Texts, media.TextOverlay{
			Text:        c.Text,
			FontFile:    s.FontFile,
			FontSize:    subtitleFontSize,
			Color:       "yellow",
			BorderWidth: 1,
			BorderColor: "black",
			X:           "(w-text_w)/2",
			Y:           fmt.Sprint(subtitleTop),
			Start:       c.Start,
			End:         c.End,
			Fade:        SubtitleFade,
		})
	}
	return ov
}

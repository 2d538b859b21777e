package game

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/salieri-auto/menunav/internal/utils/winproc"
)

type bmpInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct{ Header bmpInfoHeader }

var errEmptyWindow = errors.New("window client area is empty")

// CaptureFrame grabs the window's client area via PrintWindow into a
// top-down 32bpp DIB and reduces it to grayscale, which is all the
// matcher needs. Works on occluded windows, not on minimised ones.
func (w *Window) CaptureFrame() (*image.Gray, error) {
	w.updatePosition()

	_, _, width, height := w.Geometry()
	if width <= 0 || height <= 0 {
		return nil, errEmptyWindow
	}

	hdcScreen, _, _ := winproc.GetDC.Call(0)
	if hdcScreen == 0 {
		return nil, errors.New("GetDC failed")
	}
	defer winproc.ReleaseDC.Call(0, hdcScreen)

	hdcMem, _, _ := winproc.CreateCompatibleDC.Call(hdcScreen)
	if hdcMem == 0 {
		return nil, errors.New("CreateCompatibleDC failed")
	}
	defer winproc.DeleteDC.Call(hdcMem)

	// Negative height makes the DIB top-down.
	bi := bitmapInfo{Header: bmpInfoHeader{
		BiSize:     40,
		BiWidth:    int32(width),
		BiHeight:   -int32(height),
		BiPlanes:   1,
		BiBitCount: 32,
	}}
	var bitsPtr uintptr
	hbm, _, _ := winproc.CreateDIBSection.Call(hdcScreen, uintptr(unsafe.Pointer(&bi)), 0, uintptr(unsafe.Pointer(&bitsPtr)), 0, 0)
	if hbm == 0 || bitsPtr == 0 {
		return nil, errors.New("CreateDIBSection failed")
	}
	defer winproc.DeleteObject.Call(hbm)
	winproc.SelectObject.Call(hdcMem, hbm)

	// PW_CLIENTONLY | PW_RENDERFULLCONTENT
	ok, _, _ := winproc.PrintWindow.Call(uintptr(w.HWND), hdcMem, 3)
	if ok == 0 {
		return nil, fmt.Errorf("PrintWindow failed for %q", w.Title)
	}
	winproc.GdiFlush.Call()

	src := unsafe.Slice((*byte)(unsafe.Pointer(bitsPtr)), width*height*4)

	// BGRA to luma, BT.601 integer weights.
	gray := image.NewGray(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(src); i, j = i+4, j+1 {
		b := uint32(src[i])
		g := uint32(src[i+1])
		r := uint32(src[i+2])
		gray.Pix[j] = uint8((299*r + 587*g + 114*b) / 1000)
	}

	return gray, nil
}

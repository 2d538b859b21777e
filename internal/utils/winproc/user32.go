package winproc

import "golang.org/x/sys/windows"

var (
	USER32             = windows.NewLazySystemDLL("user32.dll")
	PrintWindow        = USER32.NewProc("PrintWindow")
	GetDC              = USER32.NewProc("GetDC")
	ReleaseDC          = USER32.NewProc("ReleaseDC")
	IsIconic           = USER32.NewProc("IsIconic")
	SetProcessDpiAware = USER32.NewProc("SetProcessDPIAware")
	GetClientRect      = USER32.NewProc("GetClientRect")
	ClientToScreen     = USER32.NewProc("ClientToScreen")
	FindWindow         = USER32.NewProc("FindWindowW")
	SetForegroundWin   = USER32.NewProc("SetForegroundWindow")
)

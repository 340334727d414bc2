//go:build darwin

package screen

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework CoreGraphics
#import <Cocoa/Cocoa.h>
#import <CoreGraphics/CoreGraphics.h>

// 没有屏幕录制权限时其他应用的窗口名称会被隐藏
int hasScreenCaptureAccess() {
    if (@available(macOS 10.15, *)) {
        CFArrayRef windows = CGWindowListCopyWindowInfo(
            kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
            kCGNullWindowID
        );
        if (windows == NULL) {
            return 0;
        }

        CFIndex count = CFArrayGetCount(windows);
        int named = 0;
        for (CFIndex i = 0; i < count; i++) {
            CFDictionaryRef w = (CFDictionaryRef)CFArrayGetValueAtIndex(windows, i);
            CFStringRef name = (CFStringRef)CFDictionaryGetValue(w, kCGWindowName);
            if (name != NULL && CFStringGetLength(name) > 0) {
                named = 1;
                break;
            }
        }
        CFRelease(windows);
        return (count == 0 || named) ? 1 : 0;
    }
    return 1;
}

void openScreenCapturePreferences() {
    NSString *url = @"x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:url]];
}
*/
import "C"

// CheckPermission 检查屏幕录制权限（不触发弹窗）
// 返回 false 时附带授权说明。
func CheckPermission() (bool, string) {
	if C.hasScreenCaptureAccess() == 1 {
		return true, ""
	}
	return false, "需要屏幕录制权限才能截屏和图像识别:\n" +
		"   系统偏好设置 > 安全性与隐私 > 隐私 > 屏幕录制\n" +
		"授权后需要重启应用才能生效。"
}

// OpenPermissionSettings 打开屏幕录制设置页面
func OpenPermissionSettings() {
	C.openScreenCapturePreferences()
}

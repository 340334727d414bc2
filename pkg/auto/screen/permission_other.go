//go:build !darwin

package screen

// CheckPermission 检查屏幕录制权限
// 非 macOS 系统不需要特殊权限
func CheckPermission() (bool, string) {
	return true, ""
}

// OpenPermissionSettings 打开屏幕录制设置页面
func OpenPermissionSettings() {
	// 非 macOS 不需要
}

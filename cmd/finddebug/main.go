// finddebug 模板匹配调试工具
//
// 用法:
//
//	finddebug best button.png --haystack screen.png
//	finddebug all icon.png --haystack screen.png --annotate out.png
//	finddebug wait button.png --timeout 5000 --region 0,0,800,600
//	finddebug capture --out screen.png
package main

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	Execute()
}

package classify

import "testing"

func TestClassifyEndRequest(t *testing.T) {
	c := NewKeywordClassifier()
	answers := []string{
		"结束吧",
		"今天就到这里，完成了",
		"  FINISH  ",
		"ok we are done",
	}
	for _, a := range answers {
		if got := c.Classify(a); got != EndRequest {
			t.Errorf("Classify(%q) = %s, want end_request", a, got)
		}
	}
	t.Logf("✓ 结束词识别 %d 条", len(answers))
}

func TestClassifySkip(t *testing.T) {
	c := NewKeywordClassifier()
	answers := []string{
		"不知道",
		"这个我真不清楚",
		"没有印象了",
		"",
		"   ",
		"I don't know",
		"跳过这个吧",
	}
	for _, a := range answers {
		if got := c.Classify(a); got != Skip {
			t.Errorf("Classify(%q) = %s, want skip", a, got)
		}
	}
	t.Logf("✓ 跳过/空回答识别 %d 条", len(answers))
}

func TestClassifySubstantive(t *testing.T) {
	c := NewKeywordClassifier()
	answers := []string{
		"我的祖籍是山东",
		"我姓张",
		"我爷爷叫张建国",
		"我们家的辈分字是'建'字辈",
	}
	for _, a := range answers {
		if got := c.Classify(a); got != Substantive {
			t.Errorf("Classify(%q) = %s, want substantive", a, got)
		}
	}
}

// 结束词优先于跳过词：用户说"不聊了"即使夹着"不知道"也按结束处理。
func TestEndBeatsSkip(t *testing.T) {
	c := NewKeywordClassifier()
	if got := c.Classify("不知道，不聊了"); got != EndRequest {
		t.Errorf("Classify = %s, want end_request", got)
	}
}

func TestCustomMarkers(t *testing.T) {
	c := NewKeywordClassifierWith([]string{"adiós"}, []string{"quién sabe"})
	if got := c.Classify("adiós"); got != EndRequest {
		t.Errorf("自定义结束词未生效: %s", got)
	}
	if got := c.Classify("quién sabe..."); got != Skip {
		t.Errorf("自定义跳过词未生效: %s", got)
	}
	// 默认中文词在替换表下不再命中
	if got := c.Classify("结束"); got != Substantive {
		t.Errorf("替换表后默认词仍命中: %s", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewKeywordClassifier()
	for i := 0; i < 5; i++ {
		if got := c.Classify("我的祖籍是山东"); got != Substantive {
			t.Fatalf("第 %d 次分类结果漂移: %s", i, got)
		}
	}
}

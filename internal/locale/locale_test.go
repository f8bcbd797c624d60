package locale_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/timetrack/internal/locale"
)

func TestLocale(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Locale Suite")
}

var _ = Describe("Translator", func() {
	var tr *locale.Translator

	BeforeEach(func() {
		var err error
		tr, err = locale.NewTranslator("en")
		Expect(err).ToNot(HaveOccurred())
	})

	It("returns the english message by default", func() {
		msg := tr.Message("", "closed_period", "fallback")
		Expect(msg).To(Equal("The entry date falls within the closed period"))
	})

	It("honors the Accept-Language header", func() {
		msg := tr.Message("ru-RU,ru;q=0.9,en;q=0.5", "author_cannot_approve_own_entries", "fallback")
		Expect(msg).To(Equal("Автор не может менять поле согласования в своих трудозатратах"))
	})

	It("falls back to english for unsupported languages", func() {
		msg := tr.Message("de-DE", "cannot_delete_others_entries", "fallback")
		Expect(msg).To(Equal("Only the owner of a time entry may delete it"))
	})

	It("returns the fallback for unknown reasons", func() {
		Expect(tr.Message("en", "no_such_reason", "fallback")).To(Equal("fallback"))
		Expect(tr.Message("en", "", "fallback")).To(Equal("fallback"))
	})

	It("lists the supported languages", func() {
		Expect(tr.Supported()).To(ConsistOf("en", "ru"))
	})

	It("rejects an invalid default language", func() {
		_, err := locale.NewTranslator("not a tag!")
		Expect(err).To(HaveOccurred())
	})
})

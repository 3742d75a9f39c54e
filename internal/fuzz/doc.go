// Package fuzztests houses Go fuzz harnesses that exercise the checker's
// untrusted byte surfaces: fixture content fed to the expectation scanner,
// and the scanner-to-matcher pipeline behind it. Its goal is to smoke test
// robustness and guard against panics or verdict arithmetic going off the
// books on arbitrary inputs.
//
// Назначение: запускать fuzz-обработчики, которые загружают байты в FileSet и
// прогоняют их через сканер маркеров и матчер.
//
// Не делает: генерацию корпусов, запись файлов, запуск внешних тулчейнов.
// Разбор вывода инструментов фаззится внутри пакета toolchain: его парсеры
// не экспортируются.
//
// Зависимости: internal/source, internal/expect, internal/match,
// internal/diag, internal/scaffold.
package fuzztests
